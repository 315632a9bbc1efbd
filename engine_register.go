package aegis

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aegisauth/aegis/token"
)

// Register creates a new account. Username and email collisions surface
// [ErrAccountExists]; password policy failures surface a [*PolicyError].
// A verification token is issued and emailed on success, but an unverified
// email never blocks login. That is the preserved, documented behavior.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	username := strings.TrimSpace(req.Username)
	if err := e.validateUsername(username); err != nil {
		e.metricInc(MetricRegisterFailure)
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		e.metricInc(MetricRegisterFailure)
		return nil, ErrInvalidEmail
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}
	if !e.registry.Known(role) {
		e.metricInc(MetricRegisterFailure)
		return nil, ErrInvalidRole
	}

	if violations := e.config.Password.Policy.Validate(req.Password); len(violations) > 0 {
		e.metricInc(MetricRegisterFailure)
		return nil, newPolicyError(violations)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		// Snapshot semantics: the grant set is captured here and only
		// RecomputePermissions refreshes it.
		Permissions: e.registry.Grants(role),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.users.Create(ctx, user); err != nil {
		e.metricInc(MetricRegisterFailure)
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, EventRegister, true, user.ID, "", map[string]string{
		"username": username,
		"role":     string(role),
	})
	e.sinkEvent("register", map[string]string{"role": string(role)})

	e.sendVerificationEmail(ctx, user)

	return &RegisterResult{
		UserID:               user.ID,
		Role:                 role,
		VerificationRequired: true,
	}, nil
}

func (e *Engine) validateUsername(username string) error {
	if len(username) < e.config.Account.UsernameMinLength ||
		len(username) > e.config.Account.UsernameMaxLength {
		return ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// sendVerificationEmail issues the single-use verification token and mails
// it. Delivery is best-effort; a failed send is an audit detail, not an
// error.
func (e *Engine) sendVerificationEmail(ctx context.Context, user *User) {
	if e.email == nil {
		return
	}
	raw, _, err := e.tokens.Issue(user.ID, user.Role, nil, token.TypeEmailVerification)
	if err != nil {
		e.sinkError("token_issue", "register")
		return
	}
	body := fmt.Sprintf(
		"Welcome, %s.\nConfirm your email address with this token: %s\nThe token expires in %s.",
		user.Username, raw, e.tokens.TTL(token.TypeEmailVerification),
	)
	_ = e.email.Send(ctx, user.Email, "Confirm your email address", body, "")
}

// VerifyEmail consumes a verification token and marks the account verified.
// The token is single use: a second presentation fails even inside its
// validity window. Every failure collapses to [ErrVerificationInvalid].
func (e *Engine) VerifyEmail(ctx context.Context, rawToken string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(rawToken, token.TypeEmailVerification)
	if err != nil {
		e.emitAudit(ctx, EventTokenRejected, false, "", "", map[string]string{
			"token_type": string(token.TypeEmailVerification),
		})
		return ErrVerificationInvalid
	}

	used, err := e.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		// Unknown revocation status fails closed.
		e.metricInc(MetricBackendError)
		return ErrVerificationInvalid
	}
	if used {
		return ErrVerificationInvalid
	}

	user, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return ErrVerificationInvalid
	}

	user.EmailVerified = true
	if err := e.users.Update(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// Consume the token for the rest of its lifetime.
	if err := e.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("blacklist_add", "verify_email")
	}

	e.metricInc(MetricEmailVerified)
	e.emitAudit(ctx, EventEmailVerified, true, user.ID, "", nil)
	return nil
}
