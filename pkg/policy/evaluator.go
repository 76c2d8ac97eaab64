package policy

import (
	"context"

	"github.com/stewardhq/steward/pkg/auth"
)

// UserDirectory resolves a user's stored platform role. Implementations
// return an auth.NotFoundError when the user does not exist.
type UserDirectory interface {
	PlatformRole(ctx context.Context, userID string) (auth.Role, error)
}

// MembershipReader answers organization membership lookups.
type MembershipReader interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
}

// Evaluator decides whether an actor may perform a privileged action on a
// target user. It holds no state beyond its injected stores and is safe for
// concurrent use.
type Evaluator struct {
	users   UserDirectory
	members MembershipReader
}

// NewEvaluator creates an evaluator backed by the given stores
func NewEvaluator(users UserDirectory, members MembershipReader) *Evaluator {
	return &Evaluator{users: users, members: members}
}

// AssertAllowed decides a single mutating action against a target user.
//
// A nil actorID marks a system-initiated action and is always allowed.
// Self-targeting is settled before the target is even resolved: allowSelf
// actions (profile update, password reset) pass, everything else is
// forbidden regardless of role. For distinct users, admins may never mutate
// other admins and managers may only mutate members.
//
// A missing target surfaces as Forbidden rather than NotFound. This masking
// is deliberate: a mutating endpoint must not confirm account existence to
// an actor who would be denied anyway.
func (e *Evaluator) AssertAllowed(ctx context.Context, actorID *string, targetID string, actorRole auth.Role, allowSelf bool) error {
	if actorID == nil {
		return nil
	}
	if *actorID == targetID {
		if allowSelf {
			return nil
		}
		return auth.NewForbidden("cannot perform this action on yourself")
	}

	targetRole, err := e.users.PlatformRole(ctx, targetID)
	if err != nil {
		if auth.IsNotFound(err) {
			return auth.NewForbidden("target user not found")
		}
		return err
	}

	if actorRole == auth.RoleAdmin && targetRole == auth.RoleAdmin {
		return auth.NewForbidden("admins cannot modify other admins")
	}
	if actorRole == auth.RoleManager && targetRole != auth.RoleMember {
		return auth.NewForbidden("managers may only modify members")
	}
	return nil
}

// RequireActiveOrg rejects manager operations issued without an active
// organization in the session.
func RequireActiveOrg(activeOrgID *string) error {
	if activeOrgID == nil || *activeOrgID == "" {
		return auth.NewForbidden("active organization required")
	}
	return nil
}

// AssertTargetInOrg verifies the target holds a membership row in the given
// organization.
func (e *Evaluator) AssertTargetInOrg(ctx context.Context, targetID, orgID string) error {
	ok, err := e.members.IsMember(ctx, orgID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return auth.NewForbidden("user is not in your organization")
	}
	return nil
}

// AssertOrgScoped applies manager organization scoping: managers must carry
// an active organization and the target must belong to it. Admins and
// system actions pass through untouched. Applied per target, including
// inside bulk operations.
func (e *Evaluator) AssertOrgScoped(ctx context.Context, actorRole auth.Role, activeOrgID *string, targetID string) error {
	if actorRole != auth.RoleManager {
		return nil
	}
	if err := RequireActiveOrg(activeOrgID); err != nil {
		return err
	}
	return e.AssertTargetInOrg(ctx, targetID, *activeOrgID)
}
