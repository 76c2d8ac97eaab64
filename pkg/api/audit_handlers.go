package api

import (
	"net/http"

	"github.com/stewardhq/steward/pkg/audit"
	"github.com/stewardhq/steward/pkg/httputil"
)

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	opts := audit.ListOptions{
		ActorID: r.URL.Query().Get("actor_id"),
		Action:  r.URL.Query().Get("action"),
		Limit:   httputil.ParseQueryInt(r, "limit", 100),
		Offset:  httputil.ParseQueryInt(r, "offset", 0),
	}
	entries, err := s.audit.List(r.Context(), opts)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, entries)
}
