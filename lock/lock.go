// Package lock provides a TTL-based mutual-exclusion primitive over a shared
// Redis backend, usable across processes.
//
// # Fencing caveat
//
// [Manager.Release] unconditionally deletes the lock key. A holder whose TTL
// expired and whose lock was since reacquired by another caller can still
// delete the new holder's lock. This matches the historical behavior and is
// preserved deliberately; [Manager.AcquireOwned] and [Manager.ReleaseOwned]
// are the opt-in holder-token variant that rejects stale releases via an
// atomic compare-and-delete. Choosing the owned variant is a behavioral
// change callers make consciously.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aegisauth/aegis/internal"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces lock keys in the shared cache. It must never overlap
// the ratelimit, session, or blacklist namespaces.
const keyPrefix = "lock:"

// retryInterval is the poll period for blocking acquisition.
const retryInterval = 100 * time.Millisecond

const holderTokenBytes = 16

// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
var ErrBackendUnavailable = errors.New("lock backend unavailable")

// Manager defines a public type used by aegis APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	redis redis.UniversalClient
}

// releaseOwnedScript deletes the key only when its value still carries the
// caller's holder token.
var releaseOwnedScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(client redis.UniversalClient) (*Manager, error) {
	if client == nil {
		return nil, errors.New("nil redis client")
	}
	return &Manager{redis: client}, nil
}

// Acquire attempts an atomic set-if-absent with TTL. In blocking mode it
// retries every 100ms until timeout elapses; non-blocking mode returns after
// a single attempt. False without error means the lock is held elsewhere.
func (m *Manager) Acquire(ctx context.Context, name string, ttl, timeout time.Duration, blocking bool) (bool, error) {
	return m.acquire(ctx, name, "1", ttl, timeout, blocking)
}

// AcquireOwned is [Manager.Acquire] with a random holder token stored as the
// lock value, for use with [Manager.ReleaseOwned].
func (m *Manager) AcquireOwned(ctx context.Context, name string, ttl, timeout time.Duration, blocking bool) (string, bool, error) {
	token, err := internal.OpaqueID(holderTokenBytes)
	if err != nil {
		return "", false, err
	}
	ok, err := m.acquire(ctx, name, token, ttl, timeout, blocking)
	if !ok {
		return "", ok, err
	}
	return token, true, err
}

func (m *Manager) acquire(ctx context.Context, name, value string, ttl, timeout time.Duration, blocking bool) (bool, error) {
	if name == "" {
		return false, errors.New("empty lock name")
	}
	if ttl <= 0 {
		return false, errors.New("non-positive lock ttl")
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := m.redis.SetNX(ctx, keyPrefix+name, value, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if ok {
			return true, nil
		}
		if !blocking || !time.Now().Add(retryInterval).Before(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Release unconditionally deletes the lock. See the package doc for the
// fencing caveat: this can delete a lock reacquired by another caller.
func (m *Manager) Release(ctx context.Context, name string) error {
	if err := m.redis.Del(ctx, keyPrefix+name).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// ReleaseOwned deletes the lock only when it still carries the caller's
// holder token, rejecting stale releases. Returns whether a delete happened.
func (m *Manager) ReleaseOwned(ctx context.Context, name, token string) (bool, error) {
	if token == "" {
		return false, errors.New("empty holder token")
	}
	n, err := releaseOwnedScript.Run(ctx, m.redis, []string{keyPrefix + name}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n == 1, nil
}

// IsLocked is a plain existence check.
func (m *Manager) IsLocked(ctx context.Context, name string) (bool, error) {
	n, err := m.redis.Exists(ctx, keyPrefix+name).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n > 0, nil
}
