// Package internal holds process-internal helpers shared by the aegis root
// package and its subpackages. Nothing here is part of the public API.
package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Alphanumeric returns n characters drawn uniformly from [A-Za-z0-9] using
// crypto/rand. Used for backup codes and other short human-entered secrets.
func Alphanumeric(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid length")
	}

	out := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}

// OpaqueID returns a base64url-encoded random identifier of the given byte
// width, with no padding. Used for session ids and lock holder tokens.
func OpaqueID(bytes int) (string, error) {
	if bytes <= 0 {
		return "", errors.New("invalid length")
	}
	raw := make([]byte, bytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
