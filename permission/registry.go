package permission

import (
	"errors"
	"sync"
)

// Registry holds role definitions for deployments that extend the default
// table with custom roles. Built-in roles are loaded at construction and
// cannot be redefined.
type Registry struct {
	mu     sync.RWMutex
	ranks  map[Role]int
	grants map[Role][]Permission
	frozen bool
}

// NewRegistry creates a [Registry] pre-populated with the built-in roles.
func NewRegistry() *Registry {
	r := &Registry{
		ranks:  make(map[Role]int, len(roleRanks)),
		grants: make(map[Role][]Permission, len(rolePermissions)),
	}
	for role, rank := range roleRanks {
		r.ranks[role] = rank
	}
	for role := range rolePermissions {
		r.grants[role] = RolePermissions(role)
	}
	return r
}

// RegisterRole adds a custom role with the given rank and grants. Must be
// called before [Registry.Freeze].
func (r *Registry) RegisterRole(role Role, rank int, grants []Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if role == "" {
		return errors.New("role name empty")
	}
	if rank <= 0 {
		return errors.New("role rank must be positive")
	}
	if _, exists := r.ranks[role]; exists {
		return errors.New("role already registered")
	}

	r.ranks[role] = rank
	r.grants[role] = append([]Permission(nil), grants...)
	return nil
}

// Freeze makes the registry immutable. Engine construction freezes the
// registry it is built with.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Known reports whether the role is defined in this registry.
func (r *Registry) Known(role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ranks[role]
	return ok
}

// Rank returns the registered rank, or zero for unknown roles.
func (r *Registry) Rank(role Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ranks[role]
}

// Grants returns a snapshot copy of the role's permission list.
func (r *Registry) Grants(role Role) []Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	perms, ok := r.grants[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasLevel compares registered ranks; unknown roles on either side deny.
func (r *Registry) HasLevel(role, required Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rank := r.ranks[role]
	req, ok := r.ranks[required]
	if rank == 0 || !ok {
		return false
	}
	return rank >= req
}
