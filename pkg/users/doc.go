// Package users implements user administration: profile edits, bans,
// removals, session revocation, impersonation, and the role assignment
// synchronizer that keeps platform roles and organization membership rows
// consistent. All mutating paths are gated by the policy evaluator in
// pkg/policy.
package users
