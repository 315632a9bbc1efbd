// Package token issues and verifies the signed tokens used by the aegis
// engine: access, refresh, password-reset, and email-verification tokens,
// each with its own fixed TTL.
//
// # Type discrimination
//
// Every token embeds a type claim. [Manager.Verify] takes the expected type
// and fails when it does not match the embedded one, so a token minted for
// one purpose (a password reset, say) can never be replayed as another (an
// access token). All verification failures — malformed input, bad signature,
// expiry, type mismatch, blacklisted id — collapse to [ErrInvalid]; the
// distinguishing cause is reported only through the audit log.
//
// # Revocation
//
// [Blacklist] records the ids of revoked tokens. The Redis implementation
// expires entries with per-key TTLs; the in-memory implementation exposes a
// caller-invoked [MemoryBlacklist.Sweep] that purges entries whose token has
// independently expired. Neither schedules itself.
//
// # What this package must NOT do
//
//   - Accept asymmetric keys: the wire format is fixed to a symmetric MAC
//     (HS256) with a secret supplied by external configuration.
//   - Distinguish verification failure causes in return values.
package token
