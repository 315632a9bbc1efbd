// Package permission provides the closed role and permission enumerations, the
// static role-to-permission table, and rank comparison helpers used by aegis
// authorization checks.
//
// # Snapshot semantics
//
// A user's permission set is derived from its role once, at account
// construction, via [RolePermissions]. Reassigning a role does not recompute
// an existing snapshot; callers that want re-derivation must request it
// explicitly.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Unknown roles
// and permissions always deny.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import the aegis root package, token, or session.
//   - Mutate the default role table after registry freeze.
package permission
