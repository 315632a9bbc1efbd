package internaldefs

import (
	aegis "github.com/aegisauth/aegis"
)

// CounterDef defines a public type used by aegis APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   aegis.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: aegis.MetricLoginSuccess, Name: "aegis_login_success_total", Help: "Successful login attempts."},
	{ID: aegis.MetricLoginFailure, Name: "aegis_login_failure_total", Help: "Failed login attempts."},
	{ID: aegis.MetricLoginLocked, Name: "aegis_login_locked_total", Help: "Logins rejected by account lockout."},
	{ID: aegis.MetricLoginRateLimited, Name: "aegis_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: aegis.MetricMFARequired, Name: "aegis_mfa_required_total", Help: "Logins halted pending a second factor."},
	{ID: aegis.MetricMFASuccess, Name: "aegis_mfa_success_total", Help: "Successful second-factor verifications."},
	{ID: aegis.MetricMFAFailure, Name: "aegis_mfa_failure_total", Help: "Failed second-factor verifications."},
	{ID: aegis.MetricBackupCodeUsed, Name: "aegis_backup_code_used_total", Help: "Backup-code authentications."},
	{ID: aegis.MetricRegisterSuccess, Name: "aegis_register_success_total", Help: "Successful registrations."},
	{ID: aegis.MetricRegisterFailure, Name: "aegis_register_failure_total", Help: "Rejected registrations."},
	{ID: aegis.MetricEmailVerified, Name: "aegis_email_verified_total", Help: "Completed email verifications."},
	{ID: aegis.MetricResetRequested, Name: "aegis_reset_requested_total", Help: "Password reset requests."},
	{ID: aegis.MetricResetCompleted, Name: "aegis_reset_completed_total", Help: "Completed password resets."},
	{ID: aegis.MetricResetRejected, Name: "aegis_reset_rejected_total", Help: "Rejected password reset challenges."},
	{ID: aegis.MetricTokenIssued, Name: "aegis_token_issued_total", Help: "Issued tokens."},
	{ID: aegis.MetricTokenRejected, Name: "aegis_token_rejected_total", Help: "Rejected token verifications."},
	{ID: aegis.MetricTokenBlacklisted, Name: "aegis_token_blacklisted_total", Help: "Revoked tokens."},
	{ID: aegis.MetricSuspiciousIPFlagged, Name: "aegis_suspicious_ip_flagged_total", Help: "Source IPs flagged by the reputation tracker."},
	{ID: aegis.MetricBackendError, Name: "aegis_backend_error_total", Help: "Backend failures observed on engine paths."},
}

// AuditDroppedDef describes the extra counter exposed alongside the engine
// table: audit events dropped by dispatcher backpressure.
var AuditDroppedDef = CounterDef{
	Name: "aegis_audit_dropped_total",
	Help: "Dropped audit events due to dispatcher backpressure.",
}
