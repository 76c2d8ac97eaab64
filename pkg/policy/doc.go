// Package policy decides whether an actor may perform privileged actions on
// target users.
//
// # Overview
//
// Two surfaces share the same rule set:
//
// AssertAllowed is the mutating-action gate. It enforces self-protection
// (self-targeting is settled before the target is resolved), peer-role
// protection (admins never mutate other admins, managers only mutate
// members) and masks missing targets as Forbidden to prevent account
// enumeration:
//
//	err := eval.AssertAllowed(ctx, &actorID, targetID, auth.RoleManager, false)
//
// Manager organization scoping layers on top, per target:
//
//	err := eval.AssertOrgScoped(ctx, actorRole, activeOrgID, targetID)
//
// Capabilities is the read-only mirror for UI enablement: the same rules
// evaluated into per-action booleans, with missing targets reported plainly
// as NotFound. BatchCapabilities fans out over independent targets and
// silently omits unresolvable ones from the result map.
//
// The evaluator holds no mutable state and performs no caching; every call
// reads the injected stores.
//
// # Related Packages
//
//   - pkg/auth: role hierarchy and error kinds
//   - pkg/users: the write paths guarded by this package
package policy
