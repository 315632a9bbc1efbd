package aegis

import (
	"errors"
	"time"

	"github.com/aegisauth/aegis/password"
	"github.com/aegisauth/aegis/permission"
	"github.com/aegisauth/aegis/ratelimit"
	"github.com/aegisauth/aegis/token"
)

// Config defines a public type used by aegis APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token      TokenConfig
	Password   PasswordConfig
	MFA        MFAConfig
	RateLimit  ratelimit.Config
	Session    SessionConfig
	Lockout    LockoutConfig
	Reputation ReputationConfig
	Account    AccountConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// TokenConfig configures the token service. Secret is the symmetric HS256
// key and comes from configuration external to this engine.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTLs   map[token.Type]time.Duration
	Leeway time.Duration
}

// PasswordConfig configures hashing cost and the validation policy.
type PasswordConfig struct {
	Cost   int
	Policy password.Policy
}

// MFAConfig configures TOTP enrollment.
type MFAConfig struct {
	Issuer string
	Skew   uint
}

// SessionConfig configures the session store defaults.
type SessionConfig struct {
	DefaultTTL time.Duration
}

// LockoutConfig bounds consecutive failed logins per account.
type LockoutConfig struct {
	// MaxFailedAttempts is the strike count that trips the lock.
	MaxFailedAttempts int
	// LockDuration is how long a tripped account stays locked.
	LockDuration time.Duration
}

// ReputationConfig tunes the process-local suspicious-IP tracker.
type ReputationConfig struct {
	// FailedThreshold is the failed-attempt count at which an IP is
	// flagged suspicious.
	FailedThreshold int
}

// AccountConfig bounds registration input and selects the default role.
type AccountConfig struct {
	DefaultRole       permission.Role
	UsernameMinLength int
	UsernameMaxLength int
	// LoginAlerts enables the best-effort email when a successful login
	// arrives from an IP absent from recent history.
	LoginAlerts bool
	// RecentIPWindow is how many recent successful logins are consulted
	// for the new-IP check.
	RecentIPWindow int
}

// AuditConfig configures the asynchronous security-event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the buffer is full instead of blocking
	// the request path. Dropped counts are observable via
	// [Engine.AuditDropped].
	DropIfFull bool
}

// MetricsConfig enables the internal counter table.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the documented defaults. The token secret has no
// default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer: "aegis",
		},
		Password: PasswordConfig{
			Cost:   password.DefaultCost,
			Policy: password.DefaultPolicy(),
		},
		MFA: MFAConfig{
			Issuer: "aegis",
			Skew:   1,
		},
		RateLimit: ratelimit.DefaultConfig(),
		Session: SessionConfig{
			DefaultTTL: 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			LockDuration:      30 * time.Minute,
		},
		Reputation: ReputationConfig{
			FailedThreshold: 10,
		},
		Account: AccountConfig{
			DefaultRole:       permission.RoleViewer,
			UsernameMinLength: 3,
			UsernameMaxLength: 64,
			LoginAlerts:       true,
			RecentIPWindow:    10,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("lockout threshold must be positive")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.Reputation.FailedThreshold <= 0 {
		return errors.New("reputation threshold must be positive")
	}
	if c.Account.DefaultRole == "" {
		return errors.New("default role required")
	}
	if c.Account.UsernameMinLength <= 0 || c.Account.UsernameMaxLength < c.Account.UsernameMinLength {
		return errors.New("invalid username length bounds")
	}
	if c.Session.DefaultTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg

	if cfg.Token.Secret != nil {
		out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	}
	if cfg.Token.TTLs != nil {
		out.Token.TTLs = make(map[token.Type]time.Duration, len(cfg.Token.TTLs))
		for k, v := range cfg.Token.TTLs {
			out.Token.TTLs[k] = v
		}
	}
	if cfg.RateLimit.Rules != nil {
		out.RateLimit.Rules = make(map[string]ratelimit.Rule, len(cfg.RateLimit.Rules))
		for k, v := range cfg.RateLimit.Rules {
			out.RateLimit.Rules[k] = v
		}
	}
	return out
}
