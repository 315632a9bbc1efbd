package aegis

import (
	"context"
	"fmt"

	"github.com/aegisauth/aegis/mfa"
)

// SetupMFA starts the two-phase enrollment: it mints a secret, provisioning
// URI, and backup codes, and stores them in a pending state. MFA stays off
// until [Engine.EnableMFA] confirms the authenticator produces valid codes.
// Calling SetupMFA again before confirmation replaces the pending secret.
func (e *Engine) SetupMFA(ctx context.Context, userID string) (*MFASetup, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	enrollment, hashes, err := e.totp.Setup(e.hasher, user.Username)
	if err != nil {
		return nil, err
	}

	user.MFAPending = enrollment.Secret
	user.BackupCodeHashes = hashes
	if err := e.users.Update(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return &MFASetup{
		Secret:      enrollment.Secret,
		URI:         enrollment.URI,
		BackupCodes: enrollment.BackupCodes,
	}, nil
}

// EnableMFA completes enrollment by confirming a code from the pending
// secret. Only a successful confirmation flips MFA on; a mistyped or stale
// code leaves the account exactly as SetupMFA left it.
func (e *Engine) EnableMFA(ctx context.Context, userID, code string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if user.MFAPending == "" {
		return ErrMFANotConfigured
	}

	if !e.totp.VerifyTOTP(user.MFAPending, code) {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, EventMFAFailure, false, userID, "", map[string]string{
			"reason": "enrollment_confirmation_failed",
		})
		return ErrMFARequired
	}

	user.MFASecret = user.MFAPending
	user.MFAPending = ""
	user.MFAEnabled = true
	if err := e.users.Update(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.emitAudit(ctx, EventMFAEnabled, true, userID, "", nil)
	e.sinkEvent("mfa_enabled", nil)
	return nil
}

// RegenerateBackupCodes replaces the full backup-code set for an account
// with MFA enabled. A valid TOTP code is required; handing out fresh codes
// on a bare session would turn a stolen session into a standing bypass.
// Previously issued codes stop working immediately.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled {
		return nil, ErrMFANotConfigured
	}
	if !e.totp.VerifyTOTP(user.MFASecret, code) {
		e.metricInc(MetricMFAFailure)
		return nil, ErrMFARequired
	}

	plaintext, hashes, err := mfa.GenerateBackupCodes(e.hasher)
	if err != nil {
		return nil, err
	}

	user.BackupCodeHashes = hashes
	if err := e.users.Update(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.emitAudit(ctx, EventMFAEnabled, true, userID, "", map[string]string{
		"action": "backup_codes_regenerated",
	})
	return plaintext, nil
}
