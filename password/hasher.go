package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Hasher defines a public type used by aegis APIs.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	cost int
}

// NewHasher describes the newhasher operation and its observable behavior.
//
// NewHasher may return an error when input validation, dependency calls, or security checks fail.
// NewHasher does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	if h == nil {
		return 0
	}
	return h.cost
}

// Hash describes the hash operation and its observable behavior.
//
// Hash may return an error when input validation, dependency calls, or security checks fail.
// Hash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if h == nil {
		return "", errors.New("nil hasher")
	}
	if plaintext == "" {
		return "", errors.New("empty password")
	}
	// bcrypt truncates input beyond 72 bytes; reject instead of silently
	// hashing a prefix.
	if len(plaintext) > 72 {
		return "", errors.New("password exceeds bcrypt input limit")
	}

	raw, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Verify reports whether plaintext matches the stored hash. All bcrypt
// failure modes (mismatch, malformed hash) collapse to false.
func (h *Hasher) Verify(plaintext, encodedHash string) bool {
	if plaintext == "" || encodedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext)) == nil
}

// NeedsRehash inspects the cost embedded in encodedHash and reports whether
// it is below targetCost. Malformed hashes report true so callers replace
// them on the next successful login.
func (h *Hasher) NeedsRehash(encodedHash string, targetCost int) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	return cost < targetCost
}
