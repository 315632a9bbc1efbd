package permission

// Role is a closed enumeration of account roles. The zero value is not a
// valid role; unknown roles deny all access.
type Role string

const (
	// RoleAdmin is an exported constant or variable used by the authentication engine.
	RoleAdmin Role = "admin"
	// RoleManager is an exported constant or variable used by the authentication engine.
	RoleManager Role = "manager"
	// RoleAnalyst is an exported constant or variable used by the authentication engine.
	RoleAnalyst Role = "analyst"
	// RoleViewer is an exported constant or variable used by the authentication engine.
	RoleViewer Role = "viewer"
)

// Permission is a closed enumeration of grantable capabilities.
type Permission string

const (
	// PermUsersManage is an exported constant or variable used by the authentication engine.
	PermUsersManage Permission = "users:manage"
	// PermPortfolioRead is an exported constant or variable used by the authentication engine.
	PermPortfolioRead Permission = "portfolio:read"
	// PermPortfolioWrite is an exported constant or variable used by the authentication engine.
	PermPortfolioWrite Permission = "portfolio:write"
	// PermDataExport is an exported constant or variable used by the authentication engine.
	PermDataExport Permission = "data:export"
	// PermBulkCalculate is an exported constant or variable used by the authentication engine.
	PermBulkCalculate Permission = "calc:bulk"
	// PermReportsView is an exported constant or variable used by the authentication engine.
	PermReportsView Permission = "reports:view"
	// PermSystemAdmin is an exported constant or variable used by the authentication engine.
	PermSystemAdmin Permission = "system:admin"
)

// roleRanks orders roles for level comparison. Higher outranks lower.
var roleRanks = map[Role]int{
	RoleViewer:  10,
	RoleAnalyst: 20,
	RoleManager: 30,
	RoleAdmin:   40,
}

// rolePermissions is the sole source of default authorization. Role
// reassignment does not retroactively recompute snapshots taken from it.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermPortfolioRead,
		PermReportsView,
	},
	RoleAnalyst: {
		PermPortfolioRead,
		PermReportsView,
		PermDataExport,
		PermBulkCalculate,
	},
	RoleManager: {
		PermPortfolioRead,
		PermPortfolioWrite,
		PermReportsView,
		PermDataExport,
		PermBulkCalculate,
	},
	RoleAdmin: {
		PermPortfolioRead,
		PermPortfolioWrite,
		PermReportsView,
		PermDataExport,
		PermBulkCalculate,
		PermUsersManage,
		PermSystemAdmin,
	},
}

// Valid reports whether r is one of the closed role values.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the numeric level of the role. Unknown roles rank zero and
// therefore never satisfy a level requirement.
func (r Role) Rank() int {
	return roleRanks[r]
}

// RolePermissions returns a fresh copy of the default permission set for the
// role. The copy is the caller's snapshot; later table changes (via a custom
// [Registry]) never propagate into it.
func RolePermissions(r Role) []Permission {
	perms, ok := rolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasRoleLevel reports whether role meets or exceeds the required role's
// rank. Either side being unknown denies.
func HasRoleLevel(role, required Role) bool {
	rank := roleRanks[role]
	req, ok := roleRanks[required]
	if rank == 0 || !ok {
		return false
	}
	return rank >= req
}

// Set is a snapshot permission set supporting pure membership checks.
type Set map[Permission]struct{}

// NewSet builds a [Set] from a permission list, dropping duplicates.
func NewSet(perms []Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has is pure set membership. Unknown permissions are simply absent.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the set contents in unspecified order.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}
