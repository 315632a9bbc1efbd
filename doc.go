// Package aegis provides an embeddable authentication and access-control
// engine: credential verification with account lockout, role-based
// authorization, TOTP multi-factor enrollment, typed JWT issuance and
// revocation, sliding-window rate limiting, and Redis-backed sessions and
// distributed locks.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines and multiple processes sharing
// one Redis backend after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// aegis is the public surface. It exposes [Engine], [Builder], [Config],
// the repository interfaces, and value types. Reusable mechanisms live in
// the subpackages permission, password, token, mfa, ratelimit, session, and
// lock; process-internal helpers live under internal/ and are never
// exported.
//
// # Failure philosophy
//
// User-facing authentication failures are deliberately low-information:
// unknown user, wrong password, and malformed input are indistinguishable
// from the outside. Full diagnostic detail flows only through the audit
// sink and metrics counters. Nothing in this package is process-fatal;
// every failure is scoped to the single operation.
//
// # What this package must NOT do
//
//   - Expose HTTP routes, a CLI, or a persistence schema — storage is an
//     injected [UserRepository].
//   - Reveal which credential check failed in any returned error.
//   - Perform I/O outside Engine methods (construction via Builder is
//     allocation-only until Build).
package aegis
