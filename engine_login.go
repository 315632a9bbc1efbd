package aegis

import (
	"context"
	"fmt"
	"time"

	"github.com/aegisauth/aegis/mfa"
	"github.com/aegisauth/aegis/ratelimit"
	"github.com/aegisauth/aegis/token"
)

// Credentials is the input for [Engine.Authenticate]. TOTPCode and
// BackupCode are consulted only when the account has MFA enabled; supplying
// both prefers the TOTP code.
type Credentials struct {
	Username   string
	Password   string
	IP         string
	UserAgent  string
	TOTPCode   string
	BackupCode string
}

// Authenticate runs the full login state machine: rate limit, lookup,
// lockout, activity, password, MFA, then token issuance. Exactly one
// [LoginAttempt] is recorded per call regardless of outcome. Credential
// failures all return [ErrInvalidCredentials]; the distinguishing cause is
// available only through the audit log.
func (e *Engine) Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	limitKey := creds.IP
	if limitKey == "" {
		limitKey = creds.Username
	}
	allowed, lerr := e.limiter.Allow(ctx, ratelimit.CategoryAuth, limitKey)
	if lerr != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("rate_limit_backend", "authenticate")
	}
	if !allowed {
		e.metricInc(MetricLoginRateLimited)
		e.recordAttempt(ctx, creds, false, "rate_limited")
		e.emitAudit(ctx, EventLoginRateLimited, false, "", creds.IP, nil)
		return nil, ErrRateLimited
	}

	user, err := e.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.recordAttempt(ctx, creds, false, "user_not_found")
		e.emitAudit(ctx, EventLoginFailure, false, "", creds.IP, map[string]string{
			"reason":   "user_not_found",
			"username": creds.Username,
		})
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(now) {
		e.metricInc(MetricLoginLocked)
		e.recordAttempt(ctx, creds, false, "account_locked")
		e.emitAudit(ctx, EventLoginLocked, false, user.ID, creds.IP, nil)
		return nil, ErrAccountLocked
	}

	if !user.Active {
		e.metricInc(MetricLoginFailure)
		e.recordAttempt(ctx, creds, false, "account_disabled")
		e.emitAudit(ctx, EventLoginFailure, false, user.ID, creds.IP, map[string]string{
			"reason": "account_disabled",
		})
		return nil, ErrAccountDisabled
	}

	if !e.hasher.Verify(creds.Password, user.PasswordHash) {
		return nil, e.failPassword(ctx, creds, user, now)
	}

	if user.MFAEnabled {
		ok, consumedIdx := e.checkSecondFactor(user, creds)
		if !ok {
			e.recordAttempt(ctx, creds, false, "mfa_required")
			if creds.TOTPCode == "" && creds.BackupCode == "" {
				e.metricInc(MetricMFARequired)
				e.emitAudit(ctx, EventMFARequired, false, user.ID, creds.IP, nil)
			} else {
				e.metricInc(MetricMFAFailure)
				e.emitAudit(ctx, EventMFAFailure, false, user.ID, creds.IP, nil)
			}
			return nil, ErrMFARequired
		}
		if consumedIdx >= 0 {
			// Single use: the repository removes the hash atomically, so a
			// code presented by two logins at once authenticates at most one.
			spent, cerr := e.users.ConsumeBackupCode(ctx, user.ID, user.BackupCodeHashes[consumedIdx])
			if cerr != nil {
				e.metricInc(MetricBackendError)
				e.sinkError("user_update", "authenticate")
				return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, cerr)
			}
			if !spent {
				e.metricInc(MetricMFAFailure)
				e.recordAttempt(ctx, creds, false, "mfa_required")
				e.emitAudit(ctx, EventMFAFailure, false, user.ID, creds.IP, map[string]string{
					"reason": "backup_code_already_spent",
				})
				return nil, ErrMFARequired
			}
			user.BackupCodeHashes = mfa.RemoveBackupCode(user.BackupCodeHashes, consumedIdx)
			e.metricInc(MetricBackupCodeUsed)
			e.emitAudit(ctx, EventBackupCodeUsed, true, user.ID, creds.IP, map[string]string{
				"remaining": fmt.Sprintf("%d", len(user.BackupCodeHashes)),
			})
		}
		e.metricInc(MetricMFASuccess)
	}

	return e.finishLogin(ctx, creds, user, now)
}

// failPassword handles a wrong password: strike accounting, lockout, and
// the generic error. The strike lands through the repository's atomic
// increment so that simultaneous wrong guesses each count toward the
// threshold instead of overwriting one another.
func (e *Engine) failPassword(ctx context.Context, creds Credentials, user *User, now time.Time) error {
	count, err := e.users.RecordFailedAttempt(ctx, user.ID,
		e.config.Lockout.MaxFailedAttempts, now.Add(e.config.Lockout.LockDuration))
	if err != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("user_update", "authenticate")
		count = user.FailedAttempts + 1
	}
	reason := "password_mismatch"
	if count >= e.config.Lockout.MaxFailedAttempts {
		reason = "lockout_tripped"
	}

	e.metricInc(MetricLoginFailure)
	e.recordAttempt(ctx, creds, false, reason)
	e.emitAudit(ctx, EventLoginFailure, false, user.ID, creds.IP, map[string]string{
		"reason":          reason,
		"failed_attempts": fmt.Sprintf("%d", count),
	})
	return ErrInvalidCredentials
}

// checkSecondFactor validates the TOTP code or a backup code. It returns
// the backup-code index to consume, or -1 when the TOTP path satisfied the
// check. Nothing is consumed on failure.
func (e *Engine) checkSecondFactor(user *User, creds Credentials) (bool, int) {
	if creds.TOTPCode != "" && e.totp.VerifyTOTP(user.MFASecret, creds.TOTPCode) {
		return true, -1
	}
	if creds.BackupCode != "" {
		if ok, idx := mfa.VerifyBackupCode(e.hasher, user.BackupCodeHashes, creds.BackupCode); ok {
			return true, idx
		}
	}
	return false, -1
}

func (e *Engine) finishLogin(ctx context.Context, creds Credentials, user *User, now time.Time) (*AuthResult, error) {
	// Fetch history before this attempt is recorded so the check covers
	// previous logins only.
	var recentIPs []string
	if e.config.Account.LoginAlerts && e.email != nil && creds.IP != "" {
		recentIPs, _ = e.attempts.RecentSuccessIPs(ctx, creds.Username, e.config.Account.RecentIPWindow)
	}

	priorLogin := user.LastLogin

	newHash := ""
	if e.hasher.NeedsRehash(user.PasswordHash, e.hasher.Cost()) {
		if rehash, err := e.hasher.Hash(creds.Password); err == nil {
			newHash = rehash
		}
	}
	if err := e.users.RecordLoginSuccess(ctx, user.ID, now, newHash); err != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("user_update", "authenticate")
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	access, _, err := e.tokens.Issue(user.ID, user.Role, user.Permissions, token.TypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := e.tokens.Issue(user.ID, user.Role, nil, token.TypeRefresh)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricTokenIssued)

	e.metricInc(MetricLoginSuccess)
	e.recordAttempt(ctx, creds, true, "")
	e.emitAudit(ctx, EventLoginSuccess, true, user.ID, creds.IP, nil)
	e.sinkEvent("login", map[string]string{"role": string(user.Role)})

	// Alert whenever the address is absent from the recent-success history
	// and the account has logged in before. The account's very first login
	// is the only exemption; an empty history alone is not, since the
	// window can rotate past every prior address.
	if e.config.Account.LoginAlerts && e.email != nil && creds.IP != "" &&
		!priorLogin.IsZero() && !containsIP(recentIPs, creds.IP) {
		e.sendLoginAlert(ctx, user, creds.IP)
	}

	return &AuthResult{
		UserID:       user.ID,
		Role:         user.Role,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// sendLoginAlert is best-effort and never gates the login result.
func (e *Engine) sendLoginAlert(ctx context.Context, user *User, ip string) {
	body := fmt.Sprintf(
		"A successful sign-in to your account came from a new address: %s.\nIf this was not you, reset your password immediately.",
		ip,
	)
	_ = e.email.Send(ctx, user.Email, "New sign-in from an unrecognized address", body, "")
	e.emitAudit(ctx, EventLoginNewIP, true, user.ID, ip, nil)
}

func containsIP(ips []string, ip string) bool {
	for _, candidate := range ips {
		if candidate == ip {
			return true
		}
	}
	return false
}

func (e *Engine) recordAttempt(ctx context.Context, creds Credentials, success bool, reason string) {
	if e.attempts == nil {
		return
	}
	err := e.attempts.Record(ctx, LoginAttempt{
		Username:      creds.Username,
		IP:            creds.IP,
		Timestamp:     time.Now().UTC(),
		Success:       success,
		FailureReason: reason,
		UserAgent:     creds.UserAgent,
	})
	if err != nil {
		e.metricInc(MetricBackendError)
		e.sinkError("attempt_store", "authenticate")
	}
}
