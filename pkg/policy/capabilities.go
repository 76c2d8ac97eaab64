package policy

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stewardhq/steward/pkg/auth"
)

// batchConcurrency bounds the fan-out of batch capability lookups.
const batchConcurrency = 8

// Actions holds the per-action capability flags for an actor/target pair.
type Actions struct {
	Update         bool `json:"update"`
	SetRole        bool `json:"set_role"`
	Ban            bool `json:"ban"`
	Unban          bool `json:"unban"`
	SetPassword    bool `json:"set_password"`
	Remove         bool `json:"remove"`
	RevokeSessions bool `json:"revoke_sessions"`
	Impersonate    bool `json:"impersonate"`
}

// Capabilities describes what an actor may currently do to one target.
// It mirrors AssertAllowed as a pure read so clients can drive UI
// enablement without re-deriving policy.
type Capabilities struct {
	TargetID   string    `json:"target_id"`
	TargetRole auth.Role `json:"target_role"`
	IsSelf     bool      `json:"is_self"`
	Actions    Actions   `json:"actions"`
}

// Capabilities computes the capability map for one actor/target pair.
// Unlike the mutating path, a missing target surfaces as NotFound here:
// this is a read-only query and existence is not being leaked to anyone
// who could act on it.
func (e *Evaluator) Capabilities(ctx context.Context, actorID, targetID string, actorRole auth.Role, activeOrgID *string) (Capabilities, error) {
	targetRole, err := e.users.PlatformRole(ctx, targetID)
	if err != nil {
		return Capabilities{}, err
	}

	isSelf := actorID == targetID

	inActiveOrg := false
	switch {
	case actorRole == auth.RoleAdmin:
		inActiveOrg = true
	case actorRole == auth.RoleManager && activeOrgID != nil && *activeOrgID != "":
		inActiveOrg, err = e.members.IsMember(ctx, *activeOrgID, targetID)
		if err != nil {
			return Capabilities{}, err
		}
	}

	canSelfSafe := isSelf && (actorRole == auth.RoleAdmin || inActiveOrg)

	var canMutate bool
	if !isSelf {
		if actorRole == auth.RoleAdmin {
			canMutate = targetRole != auth.RoleAdmin
		} else {
			canMutate = targetRole == auth.RoleMember && inActiveOrg
		}
	}

	return Capabilities{
		TargetID:   targetID,
		TargetRole: targetRole,
		IsSelf:     isSelf,
		Actions: Actions{
			// Self-safe actions are also available against mutable targets.
			Update:      canSelfSafe || canMutate,
			SetPassword: canSelfSafe || canMutate,
			// The rest are never grantable to self, whatever the role.
			SetRole:        canMutate,
			Ban:            canMutate,
			Unban:          canMutate,
			Remove:         canMutate,
			RevokeSessions: canMutate,
			Impersonate:    canMutate,
		},
	}, nil
}

// BatchCapabilities evaluates capabilities for many targets concurrently.
// Each target is an independent read; a target that cannot be resolved is
// omitted from the result map rather than failing the batch, so callers can
// distinguish "denied" (present, all false) from "unresolvable" (absent).
// Infrastructure errors other than NotFound do abort the batch.
func (e *Evaluator) BatchCapabilities(ctx context.Context, actorID string, targetIDs []string, actorRole auth.Role, activeOrgID *string) (map[string]Capabilities, error) {
	results := make(map[string]Capabilities, len(targetIDs))
	if len(targetIDs) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, targetID := range targetIDs {
		targetID := targetID
		g.Go(func() error {
			caps, err := e.Capabilities(gctx, actorID, targetID, actorRole, activeOrgID)
			if err != nil {
				if auth.IsNotFound(err) {
					return nil
				}
				return err
			}
			mu.Lock()
			results[targetID] = caps
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
