package api

import (
	"net/http"
	"time"

	"github.com/stewardhq/steward/pkg/httputil"
	"github.com/stewardhq/steward/pkg/middleware"
)

func (s *Server) getCapabilities(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok || actor.ID == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	start := time.Now()
	caps, err := s.eval.Capabilities(r.Context(), *actor.ID, id, actor.Role, actor.ActiveOrgID)
	if s.metrics != nil {
		s.metrics.CapabilityEvalDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, caps)
}

func (s *Server) batchCapabilities(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok || actor.ID == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	start := time.Now()
	results, err := s.eval.BatchCapabilities(r.Context(), *actor.ID, req.UserIDs, actor.Role, actor.ActiveOrgID)
	if s.metrics != nil {
		s.metrics.CapabilityBatchSize.Observe(float64(len(req.UserIDs)))
		s.metrics.CapabilityEvalDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, results)
}
