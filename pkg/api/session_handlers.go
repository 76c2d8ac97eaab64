package api

import (
	"net/http"

	"github.com/stewardhq/steward/pkg/auth"
	"github.com/stewardhq/steward/pkg/httputil"
	"github.com/stewardhq/steward/pkg/middleware"
)

// setActiveOrganization switches the session's organization context. A
// null organization_id clears it. Non-admin actors may only activate an
// organization they belong to.
func (s *Server) setActiveOrganization(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok || actor.ID == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	session, ok := middleware.GetSession(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		OrganizationID *string `json:"organization_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.OrganizationID != nil {
		if actor.Role == auth.RoleAdmin {
			if _, err := s.orgs.GetOrganization(r.Context(), *req.OrganizationID); err != nil {
				httputil.WriteDomainError(w, err)
				return
			}
		} else {
			member, err := s.orgs.IsMember(r.Context(), *req.OrganizationID, *actor.ID)
			if err != nil {
				httputil.WriteDomainError(w, err)
				return
			}
			if !member {
				httputil.WriteForbidden(w, "user is not in your organization")
				return
			}
		}
	}

	if err := s.sessions.SetActiveOrganization(r.Context(), session.Token, req.OrganizationID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// logout revokes the calling session.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := s.sessions.RevokeByToken(r.Context(), session.Token); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
