package mfa

import (
	"strings"
	"testing"
	"time"

	"github.com/aegisauth/aegis/password"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(4)
	require.NoError(t, err)
	return h
}

func TestGenerateSecretProducesProvisioningURI(t *testing.T) {
	m, err := NewManager(Config{Issuer: "aegis-test"})
	require.NoError(t, err)

	secret, uri, err := m.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"), "uri = %s", uri)
	assert.Contains(t, uri, "issuer=aegis-test")
	assert.Contains(t, uri, "period=30")
}

func TestVerifyTOTPAcceptsAdjacentSteps(t *testing.T) {
	m, err := NewManager(Config{Issuer: "aegis-test", Skew: 1})
	require.NoError(t, err)

	secret, _, err := m.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	now := time.Now()

	current, err := totp.GenerateCode(secret, now)
	require.NoError(t, err)
	assert.True(t, m.verifyAt(secret, current, now), "current step must verify")

	previous, err := totp.GenerateCode(secret, now.Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, m.verifyAt(secret, previous, now), "previous step within skew must verify")

	stale, err := totp.GenerateCode(secret, now.Add(-120*time.Second))
	require.NoError(t, err)
	assert.False(t, m.verifyAt(secret, stale, now), "step outside skew must fail")
}

func TestVerifyTOTPRejectsGarbage(t *testing.T) {
	m, err := NewManager(Config{Issuer: "aegis-test"})
	require.NoError(t, err)

	secret, _, err := m.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	assert.False(t, m.VerifyTOTP(secret, ""))
	assert.False(t, m.VerifyTOTP(secret, "abcdef"))
	assert.False(t, m.VerifyTOTP(secret, "000000"))
	assert.False(t, m.VerifyTOTP("", "123456"))
}

func TestGenerateBackupCodesShape(t *testing.T) {
	h := testHasher(t)

	plaintext, hashes, err := GenerateBackupCodes(h)
	require.NoError(t, err)

	require.Len(t, plaintext, BackupCodeCount)
	require.Len(t, hashes, BackupCodeCount)

	seen := make(map[string]struct{}, len(plaintext))
	for i, code := range plaintext {
		assert.Len(t, code, BackupCodeLength)
		assert.NotEqual(t, code, hashes[i], "stored form must be a hash")
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, BackupCodeCount, "codes must be distinct")
}

func TestBackupCodeSingleUse(t *testing.T) {
	h := testHasher(t)

	plaintext, hashes, err := GenerateBackupCodes(h)
	require.NoError(t, err)

	code := plaintext[3]

	ok, idx := VerifyBackupCode(h, hashes, code)
	require.True(t, ok)
	require.GreaterOrEqual(t, idx, 0)

	hashes = RemoveBackupCode(hashes, idx)
	require.Len(t, hashes, BackupCodeCount-1)

	ok, idx = VerifyBackupCode(h, hashes, code)
	assert.False(t, ok, "consumed code must fail on reuse")
	assert.Equal(t, -1, idx)

	// The remaining codes stay valid.
	ok, _ = VerifyBackupCode(h, hashes, plaintext[0])
	assert.True(t, ok)
}

func TestRemoveBackupCodeOutOfRange(t *testing.T) {
	hashes := []string{"a", "b"}
	assert.Equal(t, hashes, RemoveBackupCode(hashes, -1))
	assert.Equal(t, hashes, RemoveBackupCode(hashes, 2))
}
