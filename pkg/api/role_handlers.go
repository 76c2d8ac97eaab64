package api

import (
	"net/http"

	"github.com/stewardhq/steward/pkg/httputil"
	"github.com/stewardhq/steward/pkg/middleware"
	"github.com/stewardhq/steward/pkg/rbac"
)

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	catalog, err := s.rbac.GetRoles(r.Context(), actor.Role)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, catalog)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	role, err := s.rbac.GetRole(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := s.rbac.CreateRole(r.Context(), req.Name, req.DisplayName, req.Description)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, role)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req rbac.UpdateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := s.rbac.UpdateRole(r.Context(), id, req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.rbac.DeleteRole(r.Context(), id); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PermissionIDs []string `json:"permission_ids"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.rbac.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getRolePermissions(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	perms, err := s.rbac.GetRolePermissions(r.Context(), name)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, perms)
}

func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grouped") == "true" {
		grouped, err := s.rbac.ListPermissionsGrouped(r.Context())
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		httputil.WriteSuccess(w, grouped)
		return
	}
	perms, err := s.rbac.ListPermissions(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, perms)
}

func (s *Server) createPermission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource    string `json:"resource"`
		Action      string `json:"action"`
		Description string `json:"description"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	perm, err := s.rbac.CreatePermission(r.Context(), req.Resource, req.Action, req.Description)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, perm)
}
