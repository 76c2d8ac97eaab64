package api

import (
	"net/http"

	"github.com/stewardhq/steward/pkg/auth"
	"github.com/stewardhq/steward/pkg/httputil"
	"github.com/stewardhq/steward/pkg/middleware"
	"github.com/stewardhq/steward/pkg/users"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		user, err := s.users.GetByEmail(r.Context(), email)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		httputil.WriteSuccess(w, users.UserPage{Users: []*auth.User{user}, Total: 1})
		return
	}
	opts := users.ListOptions{
		Limit:  httputil.ParseQueryInt(r, "limit", 50),
		Offset: httputil.ParseQueryInt(r, "offset", 0),
	}
	page, err := s.users.List(r.Context(), opts)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, page)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var update users.ProfileUpdate
	if !httputil.ParseJSONOrError(w, r, &update) {
		return
	}

	user, err := s.users.Update(r.Context(), actor, id, update)
	s.recordDecision("user.update", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PasswordHash string `json:"password_hash"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := s.users.SetPassword(r.Context(), actor, id, req.PasswordHash)
	s.recordDecision("user.set_password", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) setRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.users.SetRole(r.Context(), actor, id, auth.Role(req.Role))
	s.recordDecision("user.set_role", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) banUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := s.users.Ban(r.Context(), actor, id, req.Reason)
	s.recordDecision("user.ban", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) unbanUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	err := s.users.Unban(r.Context(), actor, id)
	s.recordDecision("user.unban", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) removeUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	err := s.users.Remove(r.Context(), actor, id)
	s.recordDecision("user.remove", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) bulkRemoveUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := s.users.BulkRemove(r.Context(), actor, req.UserIDs)
	s.recordDecision("user.bulk_remove", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) revokeUserSessions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	n, err := s.users.RevokeSessions(r.Context(), actor, id)
	s.recordDecision("user.revoke_sessions", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsRevokedTotal.Add(float64(n))
	}
	httputil.WriteSuccess(w, map[string]int{"revoked": n})
}

func (s *Server) impersonateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	token, err := s.users.Impersonate(r.Context(), actor, id)
	s.recordDecision("user.impersonate", err)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, map[string]string{"token": token})
}
