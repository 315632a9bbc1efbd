// Package ratelimit implements sliding-window-log request throttling over a
// shared Redis backend, with a mutex-guarded in-process fallback for
// single-instance deployments.
//
// # Algorithm
//
// Each key holds the timestamps of recent requests. A check purges entries
// older than the window, counts the remainder, and either denies (at the
// limit, nothing recorded) or appends now and allows. Purge, count, and
// append run in one Lua script so concurrent callers on the same key cannot
// lose updates; a read-then-write sequence against the backend would be
// incorrect under concurrency.
//
// # Fail-open policy
//
// When the backend errors, the limiter follows the explicit
// [Config.FailOpen] flag: true allows the request (availability over
// strictness), false denies. The default configuration sets it true, but it
// is a named choice, never a silent fallback.
//
// # What this package must NOT do
//
//   - Share key space with sessions, locks, or the token blacklist
//     (everything here lives under "ratelimit:").
//   - Record a denied request into the window.
package ratelimit
