// Package auth defines the core identity model shared across the backend:
// the closed role set with its privilege hierarchy, the user projection, and
// the error kinds every engine operation reports.
//
// # Roles
//
// Exactly three roles exist, ranked member(0) < manager(1) < admin(2). The
// same set is used for a user's global platform role and for per-organization
// membership roles. Stored values outside the set normalize to member:
//
//	role := auth.ParseRole(raw) // unknown -> auth.RoleMember
//	role.Level()                // 0, 1 or 2
//
// Role assignment is gated by the hierarchy:
//
//	auth.AssignableRoles(auth.AllRoles, auth.RoleManager)
//	// -> [manager, member]; never admin
//
// # Errors
//
// Engine operations fail with one of three kinds, checked via IsForbidden,
// IsNotFound and IsBadRequest. None of them are retriable; each is a
// deterministic consequence of the current state.
//
// # Related Packages
//
//   - pkg/policy: target-action policy decisions built on the role hierarchy
//   - pkg/rbac: custom roles and resource:action permissions
//   - pkg/users: user administration and role synchronization
package auth
