package mfa

import (
	"errors"

	"github.com/aegisauth/aegis/internal"
	"github.com/aegisauth/aegis/password"
)

const (
	// BackupCodeCount is an exported constant or variable used by the authentication engine.
	BackupCodeCount = 8
	// BackupCodeLength is an exported constant or variable used by the authentication engine.
	BackupCodeLength = 8
)

// GenerateBackupCodes mints BackupCodeCount random alphanumeric codes and
// returns both the plaintext (shown to the user once) and the hashes (the
// only form the engine stores).
func GenerateBackupCodes(hasher *password.Hasher) (plaintext, hashes []string, err error) {
	if hasher == nil {
		return nil, nil, errors.New("nil hasher")
	}

	plaintext = make([]string, 0, BackupCodeCount)
	hashes = make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		code, err := internal.Alphanumeric(BackupCodeLength)
		if err != nil {
			return nil, nil, err
		}
		hash, err := hasher.Hash(code)
		if err != nil {
			return nil, nil, err
		}
		plaintext = append(plaintext, code)
		hashes = append(hashes, hash)
	}
	return plaintext, hashes, nil
}

// VerifyBackupCode checks the code against every stored hash and returns the
// matching index. Codes are single-use: on a hit the caller must remove the
// hash at the returned index before answering the request, so resubmitting
// the same code fails.
func VerifyBackupCode(hasher *password.Hasher, hashes []string, code string) (ok bool, index int) {
	if hasher == nil || code == "" {
		return false, -1
	}
	for i, hash := range hashes {
		if hasher.Verify(code, hash) {
			return true, i
		}
	}
	return false, -1
}

// RemoveBackupCode returns hashes with the entry at index dropped. Out of
// range indexes return the input unchanged.
func RemoveBackupCode(hashes []string, index int) []string {
	if index < 0 || index >= len(hashes) {
		return hashes
	}
	out := make([]string, 0, len(hashes)-1)
	out = append(out, hashes[:index]...)
	out = append(out, hashes[index+1:]...)
	return out
}
