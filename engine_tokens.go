package aegis

import (
	"context"
	"time"

	"github.com/aegisauth/aegis/token"
)

// IssueToken mints a token of the given type for an existing account.
// Access tokens carry the account's role and permission snapshot; the other
// types carry the subject only.
func (e *Engine) IssueToken(ctx context.Context, userID string, typ token.Type) (string, error) {
	if e == nil || e.users == nil {
		return "", ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	perms := user.Permissions
	if typ != token.TypeAccess {
		perms = nil
	}
	raw, _, err := e.tokens.Issue(user.ID, user.Role, perms, typ)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricTokenIssued)
	return raw, nil
}

// VerifyToken validates signature, expiry, type, and revocation status.
// A blacklist that cannot answer fails closed: the token is treated as
// invalid rather than trusted. Every failure surfaces [ErrTokenInvalid].
func (e *Engine) VerifyToken(ctx context.Context, raw string, expectedType token.Type) (*token.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(raw, expectedType)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, EventTokenRejected, false, "", "", map[string]string{
			"reason": "verification_failed",
		})
		return nil, ErrTokenInvalid
	}

	revoked, err := e.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricBackendError)
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, EventTokenRejected, false, claims.Subject, "", map[string]string{
			"reason": "blacklist_unavailable",
		})
		return nil, ErrTokenInvalid
	}
	if revoked {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, EventTokenRejected, false, claims.Subject, "", map[string]string{
			"reason": "revoked",
		})
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// RevokeToken blacklists the token's id for the remainder of its lifetime.
// The token must still verify; revoking garbage is rejected so the
// blacklist holds only ids that could otherwise be replayed.
func (e *Engine) RevokeToken(ctx context.Context, raw string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(raw, "")
	if err != nil {
		return ErrTokenInvalid
	}

	if err := e.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}

	e.metricInc(MetricTokenBlacklisted)
	e.emitAudit(ctx, EventTokenBlacklisted, true, claims.Subject, "", map[string]string{
		"token_type": string(claims.TokenType),
	})
	return nil
}

// Logout revokes the session's tokens and destroys the server-side session
// record when a session store is configured. Token revocation is the part
// that matters; session teardown is best-effort cleanup.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	var firstErr error
	if accessToken != "" {
		if err := e.RevokeToken(ctx, accessToken); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if refreshToken != "" {
		if err := e.RevokeToken(ctx, refreshToken); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if sessionID != "" && e.sessions != nil {
		if err := e.sessions.Destroy(ctx, sessionID); err != nil {
			e.sinkError("session_destroy", "logout")
		}
	}
	return firstErr
}

// SweepBlacklist removes expired revocation entries and returns the count.
// It is caller-invoked housekeeping; the engine never schedules it. For the
// Redis blacklist it is a no-op, since per-key TTLs expire on their own.
func (e *Engine) SweepBlacklist(ctx context.Context) (int, error) {
	if e == nil || e.blacklist == nil {
		return 0, ErrEngineNotReady
	}
	return e.blacklist.Sweep(ctx, time.Now())
}
