package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/pkg/auth"
	"github.com/stewardhq/steward/pkg/contextkeys"
	"github.com/stewardhq/steward/pkg/observability"
	"github.com/stewardhq/steward/pkg/orgs"
	"github.com/stewardhq/steward/pkg/policy"
	"github.com/stewardhq/steward/pkg/users"
)

type stubDirectory struct {
	roles map[string]auth.Role
}

func (d *stubDirectory) PlatformRole(_ context.Context, userID string) (auth.Role, error) {
	role, ok := d.roles[userID]
	if !ok {
		return "", auth.NewNotFound("user")
	}
	return role, nil
}

type stubMembers struct {
	orgs map[string]map[string]bool
}

func (m *stubMembers) IsMember(_ context.Context, orgID, userID string) (bool, error) {
	return m.orgs[orgID][userID], nil
}

type memStore struct {
	users map[string]*auth.User
}

func (s *memStore) Get(_ context.Context, id string) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.NewNotFound("user")
	}
	return u, nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, auth.NewNotFound("user")
}

func (s *memStore) List(_ context.Context, _ users.ListOptions) (*users.UserPage, error) {
	page := &users.UserPage{Total: len(s.users), Users: []*auth.User{}}
	for _, u := range s.users {
		page.Users = append(page.Users, u)
	}
	return page, nil
}

func (s *memStore) UpdateProfile(_ context.Context, id string, update users.ProfileUpdate) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.NewNotFound("user")
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	return u, nil
}

func (s *memStore) SetPasswordHash(_ context.Context, _, _ string) error { return nil }

func (s *memStore) SetBan(_ context.Context, id string, banned bool, reason string) error {
	u, ok := s.users[id]
	if !ok {
		return auth.NewNotFound("user")
	}
	u.Banned = banned
	u.BanReason = reason
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	delete(s.users, id)
	return nil
}

func (s *memStore) DeleteMany(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(s.users, id)
	}
	return nil
}

func (s *memStore) AssignRole(_ context.Context, targetID string, newRole auth.Role, _ string) (*auth.User, error) {
	u, ok := s.users[targetID]
	if !ok {
		return nil, auth.NewNotFound("user")
	}
	u.PlatformRole = newRole
	return u, nil
}

type noopOrgDir struct{}

func (noopOrgDir) MostRecentMembership(_ context.Context, _ string) (*orgs.Member, error) {
	return nil, auth.NewNotFound("membership")
}

type noopSessions struct{}

func (noopSessions) RevokeByUser(_ context.Context, _ string) (int, error) { return 1, nil }
func (noopSessions) CreateImpersonated(_ context.Context, _, _ string) (string, error) {
	return "tok-imp", nil
}

// actorInjector stands in for the session middleware in tests.
func actorInjector(actor users.Actor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextkeys.WithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestServer() *Server {
	store := &memStore{users: map[string]*auth.User{
		"admin-1":  {ID: "admin-1", PlatformRole: auth.RoleAdmin},
		"admin-2":  {ID: "admin-2", PlatformRole: auth.RoleAdmin},
		"mgr-1":    {ID: "mgr-1", PlatformRole: auth.RoleManager},
		"member-1": {ID: "member-1", Email: "member-1@example.com", PlatformRole: auth.RoleMember},
	}}
	eval := policy.NewEvaluator(
		&stubDirectory{roles: map[string]auth.Role{
			"admin-1":  auth.RoleAdmin,
			"admin-2":  auth.RoleAdmin,
			"mgr-1":    auth.RoleManager,
			"member-1": auth.RoleMember,
		}},
		&stubMembers{orgs: map[string]map[string]bool{
			"org-1": {"mgr-1": true, "member-1": true},
		}},
	)
	svc := users.NewService(store, eval, noopOrgDir{}, noopSessions{}, nil)
	return NewServer(Deps{
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
		Users:  svc,
		Policy: eval,
	})
}

func adminActor() users.Actor {
	id := "admin-1"
	return users.Actor{ID: &id, Role: auth.RoleAdmin}
}

func memberActor() users.Actor {
	id := "member-1"
	return users.Actor{ID: &id, Role: auth.RoleMember}
}

func doRequest(t *testing.T, s *Server, actor *users.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var handler http.Handler = s.Router()
	if actor != nil {
		handler = actorInjector(*actor, handler)
	}
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUserRoutes(t *testing.T) {
	t.Run("list users", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodGet, "/api/v1/users", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page users.UserPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 4, page.Total)
	})

	t.Run("lookup by email", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodGet, "/api/v1/users?email=member-1@example.com", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page users.UserPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Users, 1)
		assert.Equal(t, "member-1", page.Users[0].ID)
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		s := newTestServer()
		rec := doRequest(t, s, nil, http.MethodGet, "/api/v1/users", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("member blocked from admin surface", func(t *testing.T) {
		s := newTestServer()
		actor := memberActor()
		rec := doRequest(t, s, &actor, http.MethodGet, "/api/v1/users", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("self role change returns 403 with reason", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPut, "/api/v1/users/admin-1/role", `{"role":"member"}`)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "cannot perform this action on yourself")
	})

	t.Run("missing target masked as 403 on mutation", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPost, "/api/v1/users/ghost/ban", `{"reason":"spam"}`)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "target user not found")
	})

	t.Run("ban and unban round trip", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPost, "/api/v1/users/member-1/ban", `{"reason":"spam"}`)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(t, s, &actor, http.MethodDelete, "/api/v1/users/member-1/ban", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("empty profile update is a 400", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPatch, "/api/v1/users/admin-1", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bulk delete with self in list is rejected whole", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPost, "/api/v1/users/bulk-delete",
			`{"user_ids":["member-1","admin-1"]}`)
		require.Equal(t, http.StatusForbidden, rec.Code)

		// Nothing was deleted.
		rec = doRequest(t, s, &actor, http.MethodGet, "/api/v1/users/member-1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("impersonation issues a token", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPost, "/api/v1/users/member-1/impersonate", "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "tok-imp")
	})
}

func TestCapabilityRoutes(t *testing.T) {
	t.Run("single target capabilities", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodGet, "/api/v1/users/member-1/capabilities", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var caps policy.Capabilities
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caps))
		assert.True(t, caps.Actions.Ban)
		assert.True(t, caps.Actions.SetRole)
		assert.False(t, caps.IsSelf)
	})

	t.Run("missing target is a plain 404 on the read path", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodGet, "/api/v1/users/ghost/capabilities", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("batch omits unresolvable targets", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPost, "/api/v1/users/capabilities/batch",
			`{"user_ids":["member-1","ghost","admin-2"]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var results map[string]policy.Capabilities
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		assert.Len(t, results, 2)
		assert.NotContains(t, results, "ghost")
		// Fellow admin present but entirely denied.
		assert.Equal(t, policy.Actions{}, results["admin-2"].Actions)
	})

	t.Run("empty batch returns empty object", func(t *testing.T) {
		s := newTestServer()
		actor := adminActor()
		rec := doRequest(t, s, &actor, http.MethodPost, "/api/v1/users/capabilities/batch",
			`{"user_ids":[]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{}`, rec.Body.String())
	})
}
