package users

import (
	"context"
	"fmt"

	"github.com/stewardhq/steward/pkg/auth"
	"github.com/stewardhq/steward/pkg/orgs"
	"github.com/stewardhq/steward/pkg/policy"
)

// Store is the persistence surface the service drives.
type Store interface {
	Get(ctx context.Context, id string) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	List(ctx context.Context, opts ListOptions) (*UserPage, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*auth.User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetBan(ctx context.Context, id string, banned bool, reason string) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
	AssignRole(ctx context.Context, targetID string, newRole auth.Role, orgID string) (*auth.User, error)
}

// OrgDirectory resolves membership rows for organization scope fallback.
type OrgDirectory interface {
	MostRecentMembership(ctx context.Context, userID string) (*orgs.Member, error)
}

// SessionManager covers the session operations triggered from user
// administration.
type SessionManager interface {
	RevokeByUser(ctx context.Context, userID string) (int, error)
	CreateImpersonated(ctx context.Context, actorID, targetID string) (token string, err error)
}

// AuditRecorder appends one audit row per privileged action. A nil reason
// is recorded as empty.
type AuditRecorder interface {
	Record(ctx context.Context, actorID *string, targetID, action, outcome, reason string)
}

// Service orchestrates user administration: every mutating operation runs
// through the policy evaluator before it touches the store.
type Service struct {
	store    Store
	eval     *policy.Evaluator
	orgs     OrgDirectory
	sessions SessionManager
	audit    AuditRecorder
}

// NewService creates a user administration service. The audit recorder may
// be nil, in which case actions are not recorded.
func NewService(store Store, eval *policy.Evaluator, orgDir OrgDirectory, sessions SessionManager, audit AuditRecorder) *Service {
	return &Service{store: store, eval: eval, orgs: orgDir, sessions: sessions, audit: audit}
}

// Get returns a single user projection.
func (s *Service) Get(ctx context.Context, id string) (*auth.User, error) {
	return s.store.Get(ctx, id)
}

// GetByEmail returns the user with the given email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.store.GetByEmail(ctx, email)
}

// List returns a page of user projections.
func (s *Service) List(ctx context.Context, opts ListOptions) (*UserPage, error) {
	return s.store.List(ctx, opts)
}

// Update edits a target's profile. Self-edits are allowed; edits to others
// follow the mutation policy and manager organization scoping.
func (s *Service) Update(ctx context.Context, actor Actor, targetID string, update ProfileUpdate) (*auth.User, error) {
	if update.Empty() {
		return nil, auth.NewBadRequest("no fields to update")
	}
	if err := s.authorize(ctx, actor, targetID, true); err != nil {
		s.record(ctx, actor, targetID, "user.update", err)
		return nil, err
	}
	user, err := s.store.UpdateProfile(ctx, targetID, update)
	s.record(ctx, actor, targetID, "user.update", err)
	return user, err
}

// SetPassword stores a new password hash for the target. Like Update it is
// allowed against yourself.
func (s *Service) SetPassword(ctx context.Context, actor Actor, targetID, hash string) error {
	if hash == "" {
		return auth.NewBadRequest("password hash must not be empty")
	}
	if err := s.authorize(ctx, actor, targetID, true); err != nil {
		s.record(ctx, actor, targetID, "user.set_password", err)
		return err
	}
	err := s.store.SetPasswordHash(ctx, targetID, hash)
	s.record(ctx, actor, targetID, "user.set_password", err)
	return err
}

// Ban marks the target banned with an optional reason. Bans do not revoke
// sessions on their own.
func (s *Service) Ban(ctx context.Context, actor Actor, targetID, reason string) error {
	if err := s.authorize(ctx, actor, targetID, false); err != nil {
		s.record(ctx, actor, targetID, "user.ban", err)
		return err
	}
	err := s.store.SetBan(ctx, targetID, true, reason)
	s.record(ctx, actor, targetID, "user.ban", err)
	return err
}

// Unban clears the target's ban.
func (s *Service) Unban(ctx context.Context, actor Actor, targetID string) error {
	if err := s.authorize(ctx, actor, targetID, false); err != nil {
		s.record(ctx, actor, targetID, "user.unban", err)
		return err
	}
	err := s.store.SetBan(ctx, targetID, false, "")
	s.record(ctx, actor, targetID, "user.unban", err)
	return err
}

// Remove deletes the target account.
func (s *Service) Remove(ctx context.Context, actor Actor, targetID string) error {
	if err := s.authorize(ctx, actor, targetID, false); err != nil {
		s.record(ctx, actor, targetID, "user.remove", err)
		return err
	}
	err := s.store.Delete(ctx, targetID)
	s.record(ctx, actor, targetID, "user.remove", err)
	return err
}

// BulkRemove deletes a set of accounts all-or-nothing. Every target is
// validated before anything is deleted, so one bad target rejects the whole
// batch with no partial effect.
func (s *Service) BulkRemove(ctx context.Context, actor Actor, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return auth.NewBadRequest("no users to remove")
	}
	for _, id := range targetIDs {
		if actor.Is(id) {
			err := auth.NewForbidden("cannot perform this action on yourself")
			s.record(ctx, actor, id, "user.bulk_remove", err)
			return err
		}
	}
	for _, id := range targetIDs {
		if err := s.authorize(ctx, actor, id, false); err != nil {
			s.record(ctx, actor, id, "user.bulk_remove", err)
			return err
		}
	}
	err := s.store.DeleteMany(ctx, targetIDs)
	for _, id := range targetIDs {
		s.record(ctx, actor, id, "user.bulk_remove", err)
	}
	return err
}

// RevokeSessions deletes every session belonging to the target.
func (s *Service) RevokeSessions(ctx context.Context, actor Actor, targetID string) (int, error) {
	if err := s.authorize(ctx, actor, targetID, false); err != nil {
		s.record(ctx, actor, targetID, "user.revoke_sessions", err)
		return 0, err
	}
	n, err := s.sessions.RevokeByUser(ctx, targetID)
	s.record(ctx, actor, targetID, "user.revoke_sessions", err)
	return n, err
}

// Impersonate issues a session for the target that records the actor as the
// impersonator. System actors cannot impersonate.
func (s *Service) Impersonate(ctx context.Context, actor Actor, targetID string) (string, error) {
	if actor.IsSystem() {
		return "", auth.NewBadRequest("impersonation requires a user actor")
	}
	if err := s.authorize(ctx, actor, targetID, false); err != nil {
		s.record(ctx, actor, targetID, "user.impersonate", err)
		return "", err
	}
	token, err := s.sessions.CreateImpersonated(ctx, *actor.ID, targetID)
	s.record(ctx, actor, targetID, "user.impersonate", err)
	return token, err
}

// SetRole changes the target's platform role and synchronizes their
// membership rows.
//
// Role changes are never allowed against yourself, the new role must not
// outrank the actor, and manager actors stay confined to their active
// organization. The organization scope for the membership write is the
// actor's active organization when present; otherwise only an admin may
// proceed, falling back to the target's most recent membership. Promotion
// to admin needs no scope because it clears every membership row.
func (s *Service) SetRole(ctx context.Context, actor Actor, targetID string, newRole auth.Role) (*auth.User, error) {
	if !newRole.Valid() {
		return nil, auth.NewBadRequest(fmt.Sprintf("unknown role %q", string(newRole)))
	}
	if err := s.authorize(ctx, actor, targetID, false); err != nil {
		s.record(ctx, actor, targetID, "user.set_role", err)
		return nil, err
	}
	if !actor.IsSystem() && newRole.Level() > actor.Role.Level() {
		err := auth.NewForbidden("cannot assign a role above your own")
		s.record(ctx, actor, targetID, "user.set_role", err)
		return nil, err
	}

	orgID, err := s.resolveScopeOrg(ctx, actor, targetID, newRole)
	if err != nil {
		s.record(ctx, actor, targetID, "user.set_role", err)
		return nil, err
	}

	user, err := s.store.AssignRole(ctx, targetID, newRole, orgID)
	s.record(ctx, actor, targetID, "user.set_role", err)
	return user, err
}

// resolveScopeOrg picks the organization the membership write applies to.
func (s *Service) resolveScopeOrg(ctx context.Context, actor Actor, targetID string, newRole auth.Role) (string, error) {
	if newRole == auth.RoleAdmin {
		return "", nil
	}
	if actor.ActiveOrgID != nil && *actor.ActiveOrgID != "" {
		return *actor.ActiveOrgID, nil
	}
	if !actor.IsSystem() && actor.Role != auth.RoleAdmin {
		return "", auth.NewForbidden("active organization required")
	}
	membership, err := s.orgs.MostRecentMembership(ctx, targetID)
	if err != nil {
		if auth.IsNotFound(err) {
			return "", auth.NewBadRequest("cannot determine organization scope for role assignment")
		}
		return "", err
	}
	return membership.OrganizationID, nil
}

// authorize runs the mutation policy plus manager organization scoping.
// Scoping is skipped for self-targeting, which the evaluator settles on its
// own.
func (s *Service) authorize(ctx context.Context, actor Actor, targetID string, allowSelf bool) error {
	if err := s.eval.AssertAllowed(ctx, actor.ID, targetID, actor.Role, allowSelf); err != nil {
		return err
	}
	if actor.IsSystem() || actor.Is(targetID) {
		return nil
	}
	return s.eval.AssertOrgScoped(ctx, actor.Role, actor.ActiveOrgID, targetID)
}

func (s *Service) record(ctx context.Context, actor Actor, targetID, action string, err error) {
	if s.audit == nil {
		return
	}
	outcome := "allowed"
	reason := ""
	if err != nil {
		outcome = "denied"
		reason = err.Error()
	}
	s.audit.Record(ctx, actor.ID, targetID, action, outcome, reason)
}
