package aegis

import (
	"context"
	"fmt"
	"time"

	"github.com/aegisauth/aegis/ratelimit"
	"github.com/aegisauth/aegis/token"
)

// RequestPasswordReset issues a reset token for the account behind the email
// address and mails it. The outcome is deliberately indistinguishable for
// known and unknown addresses: both return nil, so the operation cannot be
// used to enumerate accounts. The only caller-visible failure is the rate
// limit.
func (e *Engine) RequestPasswordReset(ctx context.Context, email, ip string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	limitKey := ip
	if limitKey == "" {
		limitKey = email
	}
	allowed, lerr := e.limiter.Allow(ctx, ratelimit.CategoryAuth, limitKey)
	if lerr != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("rate_limit_backend", "password_reset")
	}
	if !allowed {
		return ErrRateLimited
	}

	e.metricInc(MetricResetRequested)

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		// Same audit type, same nil return. Details record the miss for
		// operators only.
		e.emitAudit(ctx, EventResetRequested, false, "", ip, map[string]string{
			"reason": "unknown_email",
		})
		return nil
	}

	raw, _, err := e.tokens.Issue(user.ID, user.Role, nil, token.TypePasswordReset)
	if err != nil {
		e.sinkError("token_issue", "password_reset")
		return nil
	}

	if e.email != nil {
		body := fmt.Sprintf(
			"A password reset was requested for your account.\nReset token: %s\nThe token expires in %s and can be used once.\nIf you did not request this, no action is needed.",
			raw, e.tokens.TTL(token.TypePasswordReset),
		)
		_ = e.email.Send(ctx, user.Email, "Password reset request", body, "")
	}

	e.emitAudit(ctx, EventResetRequested, true, user.ID, ip, nil)
	return nil
}

// ResetPassword consumes a reset token and installs the new password. The
// token is single use; success also clears any standing lockout, since the
// password change proves account ownership. Every token problem collapses
// to [ErrResetInvalid].
func (e *Engine) ResetPassword(ctx context.Context, rawToken, newPassword, ip string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(rawToken, token.TypePasswordReset)
	if err != nil {
		return e.rejectReset(ctx, "", ip, "token_invalid")
	}

	used, err := e.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricBackendError)
		return e.rejectReset(ctx, claims.Subject, ip, "blacklist_unavailable")
	}
	if used {
		return e.rejectReset(ctx, claims.Subject, ip, "token_reused")
	}

	user, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return e.rejectReset(ctx, claims.Subject, ip, "user_missing")
	}

	if violations := e.config.Password.Policy.Validate(newPassword); len(violations) > 0 {
		e.metricInc(MetricResetRejected)
		return newPolicyError(violations)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.FailedAttempts = 0
	user.LockUntil = time.Time{}
	if err := e.users.Update(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("blacklist_add", "password_reset")
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, EventResetCompleted, true, user.ID, ip, nil)
	return nil
}

func (e *Engine) rejectReset(ctx context.Context, userID, ip, reason string) error {
	e.metricInc(MetricResetRejected)
	e.emitAudit(ctx, EventResetRejected, false, userID, ip, map[string]string{
		"reason": reason,
	})
	return ErrResetInvalid
}

// ChangePassword replaces the password for an authenticated user. The
// current password must verify first; the new one must clear policy.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return ErrInvalidCredentials
	}
	if !e.hasher.Verify(currentPassword, user.PasswordHash) {
		e.emitAudit(ctx, EventPasswordChanged, false, userID, "", map[string]string{
			"reason": "current_password_mismatch",
		})
		return ErrInvalidCredentials
	}

	if violations := e.config.Password.Policy.Validate(newPassword); len(violations) > 0 {
		return newPolicyError(violations)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if err := e.users.Update(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.emitAudit(ctx, EventPasswordChanged, true, userID, "", nil)
	return nil
}
