package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/aegisauth/aegis/permission"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type discriminates the purpose a token was minted for.
type Type string

const (
	// TypeAccess is an exported constant or variable used by the authentication engine.
	TypeAccess Type = "access"
	// TypeRefresh is an exported constant or variable used by the authentication engine.
	TypeRefresh Type = "refresh"
	// TypePasswordReset is an exported constant or variable used by the authentication engine.
	TypePasswordReset Type = "password_reset"
	// TypeEmailVerification is an exported constant or variable used by the authentication engine.
	TypeEmailVerification Type = "email_verification"
)

// ErrInvalid is the single verification failure value. Malformed, expired,
// mis-signed, wrong-type, and revoked tokens are indistinguishable to
// callers.
var ErrInvalid = errors.New("invalid token")

// defaultTTLs fixes the per-type lifetime of issued tokens.
var defaultTTLs = map[Type]time.Duration{
	TypeAccess:            24 * time.Hour,
	TypeRefresh:           7 * 24 * time.Hour,
	TypePasswordReset:     time.Hour,
	TypeEmailVerification: 24 * time.Hour,
}

// Valid reports whether t is one of the closed token types.
func (t Type) Valid() bool {
	_, ok := defaultTTLs[t]
	return ok
}

// Claims is the payload carried by every aegis token.
type Claims struct {
	Subject     string                  `json:"sub"`
	Role        permission.Role         `json:"role,omitempty"`
	Permissions []permission.Permission `json:"perms,omitempty"`
	TokenType   Type                    `json:"typ"`
	jwt.RegisteredClaims
}

// Config defines a public type used by aegis APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Secret is the symmetric HS256 signing key, supplied by configuration
	// external to this package.
	Secret []byte
	Issuer string
	// TTLs overrides the default per-type lifetimes. Missing entries keep
	// their defaults.
	TTLs map[Type]time.Duration
	// Leeway tolerates clock skew between issuer and verifier.
	Leeway time.Duration
}

// Manager defines a public type used by aegis APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
	ttls   map[Type]time.Duration
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("hs256 secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	ttls := make(map[Type]time.Duration, len(defaultTTLs))
	for typ, ttl := range defaultTTLs {
		ttls[typ] = ttl
	}
	for typ, ttl := range cfg.TTLs {
		if !typ.Valid() {
			return nil, fmt.Errorf("unknown token type %q in TTL override", typ)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("non-positive TTL override for %q", typ)
		}
		ttls[typ] = ttl
	}

	return &Manager{config: cfg, ttls: ttls}, nil
}

// TTL returns the configured lifetime for the token type.
func (m *Manager) TTL(typ Type) time.Duration {
	if m == nil {
		return 0
	}
	return m.ttls[typ]
}

// Issue stamps iat/exp, assigns a random jti, sets the type claim, and signs
// the token with the symmetric secret.
func (m *Manager) Issue(subject string, role permission.Role, perms []permission.Permission, typ Type) (string, *Claims, error) {
	if m == nil {
		return "", nil, errors.New("nil token manager")
	}
	if subject == "" {
		return "", nil, errors.New("empty subject")
	}
	ttl, ok := m.ttls[typ]
	if !ok {
		return "", nil, fmt.Errorf("unknown token type %q", typ)
	}

	now := time.Now()
	claims := Claims{
		Subject:     subject,
		Role:        role,
		Permissions: append([]permission.Permission(nil), perms...),
		TokenType:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// Verify checks signature and expiry, then the type claim when expectedType
// is non-empty. The returned error is always [ErrInvalid]; the underlying
// cause is wrapped for audit logging and never shown to end users.
func (m *Manager) Verify(raw string, expectedType Type) (*Claims, error) {
	if m == nil {
		return nil, ErrInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if !claims.TokenType.Valid() {
		return nil, fmt.Errorf("%w: missing type claim", ErrInvalid)
	}
	if expectedType != "" && claims.TokenType != expectedType {
		return nil, fmt.Errorf("%w: type mismatch", ErrInvalid)
	}

	return claims, nil
}
