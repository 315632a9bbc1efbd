// Package password provides credential hashing, password-policy validation,
// and strength estimation for the aegis engine.
//
// # Hashing
//
// Hashing is bcrypt with a configurable cost factor (default 12). The cost is
// embedded in the produced hash, so [Hasher.NeedsRehash] can detect hashes
// minted under a weaker cost and let callers migrate opportunistically on the
// next successful verification, without forcing re-registration.
//
// # Policy
//
// The default [Policy] requires 12–128 bytes, all four character classes,
// and rejects entries from a fixed common-password list, three-character
// ascending runs ("abc", "123"), and more than three consecutive repeats of a
// single character. The 12-byte minimum is the stricter of the two historical
// policy variants and is the documented choice for this module.
//
// # What this package must NOT do
//
//   - Perform I/O of any kind.
//   - Log or retain plaintext passwords.
//   - Import the aegis root package.
package password
