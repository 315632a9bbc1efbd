// Package mfa implements time-based one-time-password enrollment and
// verification plus single-use backup codes for the aegis engine.
//
// # Two-phase enrollment
//
// Secret issuance and enablement are separate steps: [Manager.Setup] mints a
// secret, provisioning URI, and backup codes without enabling anything; the
// engine only flips a user's MFA flag after one successful TOTP verification
// against that secret. This keeps accounts out of a half-enrolled state where
// a user who never finished scanning the QR code is locked out.
//
// # Backup codes
//
// Backup codes are stored hashed. [VerifyBackupCode] reports the matching
// index so the caller can remove the consumed hash immediately; a code
// verified once must fail on the next attempt.
//
// # What this package must NOT do
//
//   - Persist secrets or flip user flags — the engine owns user state.
//   - Retain plaintext backup codes after generation.
package mfa
