package rbac

import (
	"time"

	"github.com/stewardhq/steward/pkg/auth"
)

// Permission represents a grantable (resource, action) pair.
type Permission struct {
	ID          string    `json:"id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key returns the "resource:action" form of the permission.
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}

// CustomRole represents a named permission bundle. The three system roles
// (admin, manager, member) are seeded at migration time; their names are
// immutable and they cannot be deleted, though display fields may change.
type CustomRole struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleCatalog is the role listing returned to callers: display metadata for
// every role plus the subset of role names the requester may assign.
type RoleCatalog struct {
	Roles           []CustomRole `json:"roles"`
	AssignableRoles []string     `json:"assignable_roles"`
}

// UpdateRoleRequest updates a role's display fields. Name changes are
// rejected for system roles by the store.
type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SystemRoleNames lists the seeded role names, highest privilege first.
func SystemRoleNames() []string {
	names := make([]string, len(auth.AllRoles))
	for i, r := range auth.AllRoles {
		names[i] = string(r)
	}
	return names
}
