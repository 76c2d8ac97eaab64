// Package orgs provides multi-tenant organization management.
//
// # Overview
//
// This package manages organizations and exposes read access to membership
// rows. A membership row ties a user to one organization with an
// organization-scoped role that is distinct from the user's platform role.
//
// Membership writes are deliberately absent from this package: the only
// write path is the role synchronizer in pkg/users, which updates a user's
// platform role and their membership row in a single transaction.
//
// # Usage Example
//
//	org, err := service.CreateOrganization(ctx, orgs.CreateOrgRequest{
//		Name: "Acme Corp",
//		Slug: "acme-corp",
//	})
//
// Membership reads used by the policy layer:
//
//	ok, err := service.IsMember(ctx, orgID, userID)
//	n, err := service.AdminCount(ctx, orgID)
//
// # Related Packages
//
//   - pkg/users: the membership write path (role synchronizer)
//   - pkg/policy: manager organization scoping built on IsMember
package orgs
