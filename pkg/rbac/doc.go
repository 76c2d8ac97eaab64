// Package rbac provides custom roles and resource:action permissions.
//
// # Overview
//
// The permission catalog is a flat set of unique (resource, action) pairs.
// Roles bundle permissions through a junction table; a role's permission set
// is always replaced whole, never diffed:
//
//	err := store.SetRolePermissions(ctx, roleID, permissionIDs)
//	// empty permissionIDs clears every grant for the role
//
// Point lookups and role resolution are tolerant of absence by design:
//
//	ok, _ := store.HasPermission(ctx, "manager", "user", "ban") // false, no error
//	perms, _ := store.GetRolePermissions(ctx, "ghost")          // empty, no error
//
// The system roles admin, manager and member are seeded by the migrations in
// this package. They cannot be deleted or renamed.
//
// There is no in-process cache: every lookup goes to the store, so freshly
// seeded or edited grants are visible immediately.
//
// # Related Packages
//
//   - pkg/auth: the platform role hierarchy that gates role assignment
//   - pkg/policy: target-action decisions (independent of this catalog)
package rbac
