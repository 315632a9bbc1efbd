// Package session provides TTL-bound opaque session records over a shared
// Redis backend.
//
// A record is a random id mapping to an arbitrary field map plus created-at
// and last-activity stamps. Updates merge fields and refresh last-activity
// without touching the TTL; only [Store.Extend] moves the expiry.
//
// # Scalability caveat
//
// [Store.ListByOwner] scans the whole session key space and is O(n) in the
// number of live sessions. That is acceptable at the scale this engine
// targets; deployments with very large session counts should maintain a
// per-owner index instead of calling it on hot paths.
//
// # What this package must NOT do
//
//   - Share key space with the rate limiter, lock, or token blacklist
//     (everything here lives under "sess:").
//   - Treat a backend error as a missing session: lookups fail closed with
//     an explicit error.
package session
