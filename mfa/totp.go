package mfa

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aegisauth/aegis/password"
)

// Config defines a public type used by aegis APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Issuer appears in the provisioning URI and authenticator app.
	Issuer string
	// Skew is the number of 30-second steps accepted either side of now.
	Skew uint
	// SecretSize is the raw secret width in bytes before base32 encoding.
	SecretSize uint
}

// Manager defines a public type used by aegis APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// Enrollment is the output of [Manager.Setup]: the base32 secret, the
// otpauth provisioning URI, and the plaintext backup codes. Plaintext codes
// exist only in this value; the engine stores hashes.
type Enrollment struct {
	Secret      string
	URI         string
	BackupCodes []string
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("totp issuer required")
	}
	if cfg.Skew == 0 {
		cfg.Skew = 1
	}
	if cfg.SecretSize == 0 {
		cfg.SecretSize = 20
	}
	return &Manager{config: cfg}, nil
}

// GenerateSecret mints a random base32 secret and its provisioning URI for
// the account. Standard parameters: 30-second period, 6 digits, SHA1.
func (m *Manager) GenerateSecret(account string) (secret, uri string, err error) {
	if m == nil {
		return "", "", errors.New("nil mfa manager")
	}
	if account == "" {
		return "", "", errors.New("empty account name")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      30,
		SecretSize:  m.config.SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Setup mints a full enrollment for the account: secret, provisioning URI,
// and a fresh set of backup codes. The returned hashes are what the caller
// persists; the Enrollment holds the only plaintext copies.
func (m *Manager) Setup(hasher *password.Hasher, account string) (*Enrollment, []string, error) {
	secret, uri, err := m.GenerateSecret(account)
	if err != nil {
		return nil, nil, err
	}
	plaintext, hashes, err := GenerateBackupCodes(hasher)
	if err != nil {
		return nil, nil, err
	}
	return &Enrollment{Secret: secret, URI: uri, BackupCodes: plaintext}, hashes, nil
}

// VerifyTOTP checks the code against the secret at the current time,
// tolerating the configured step skew for clock drift. Malformed codes
// simply fail.
func (m *Manager) VerifyTOTP(secret, code string) bool {
	return m.verifyAt(secret, code, time.Now())
}

func (m *Manager) verifyAt(secret, code string, at time.Time) bool {
	if m == nil || secret == "" {
		return false
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      m.config.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
