package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stewardhq/steward/pkg/audit"
	"github.com/stewardhq/steward/pkg/auth"
	"github.com/stewardhq/steward/pkg/middleware"
	"github.com/stewardhq/steward/pkg/observability"
	"github.com/stewardhq/steward/pkg/orgs"
	"github.com/stewardhq/steward/pkg/policy"
	"github.com/stewardhq/steward/pkg/rbac"
	"github.com/stewardhq/steward/pkg/sessions"
	"github.com/stewardhq/steward/pkg/users"
)

// Server wires the HTTP surface to the domain services. Handlers read the
// acting user from the request context and pass it explicitly into the
// services; nothing below this layer touches ambient request state.
type Server struct {
	router   *mux.Router
	logger   *observability.Logger
	metrics  *observability.Metrics
	users    *users.Service
	eval     *policy.Evaluator
	rbac     *rbac.Store
	orgs     *orgs.PostgresService
	sessions *sessions.Store
	audit    *audit.Store
}

// Deps bundles the server's collaborators. Metrics may be nil.
type Deps struct {
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Users    *users.Service
	Policy   *policy.Evaluator
	RBAC     *rbac.Store
	Orgs     *orgs.PostgresService
	Sessions *sessions.Store
	Audit    *audit.Store
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		users:    deps.Users,
		eval:     deps.Policy,
		rbac:     deps.RBAC,
		orgs:     deps.Orgs,
		sessions: deps.Sessions,
		audit:    deps.Audit,
	}
	s.registerRoutes()
	return s
}

// Router returns the route tree without outer middleware. Composition of
// authentication, rate limiting and instrumentation happens in Handler.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler wraps the routes with session auth, rate limiting, metrics,
// request IDs and tracing for production serving.
func (s *Server) Handler(authMW *middleware.SessionAuth, rateMW *middleware.RateLimitMiddleware) http.Handler {
	var h http.Handler = s.router
	if rateMW != nil {
		h = rateMW.Handler(h)
	}
	if authMW != nil {
		h = authMW.Handler(h)
	}
	if s.metrics != nil {
		h = observability.HTTPMetricsMiddleware(s.metrics)(h)
	}
	h = middleware.RequestID(s.logger)(h)
	return otelhttp.NewHandler(h, "steward-api")
}

func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	manager := middleware.RequireRole(auth.RoleManager)
	admin := middleware.RequireRole(auth.RoleAdmin)

	// Users
	api.Handle("/users", manager(http.HandlerFunc(s.listUsers))).Methods("GET")
	api.Handle("/users/bulk-delete", manager(http.HandlerFunc(s.bulkRemoveUsers))).Methods("POST")
	api.Handle("/users/capabilities/batch", manager(http.HandlerFunc(s.batchCapabilities))).Methods("POST")
	api.Handle("/users/{id}", manager(http.HandlerFunc(s.getUser))).Methods("GET")
	api.Handle("/users/{id}", http.HandlerFunc(s.updateUser)).Methods("PATCH")
	api.Handle("/users/{id}", manager(http.HandlerFunc(s.removeUser))).Methods("DELETE")
	api.Handle("/users/{id}/password", http.HandlerFunc(s.setPassword)).Methods("PUT")
	api.Handle("/users/{id}/role", manager(http.HandlerFunc(s.setRole))).Methods("PUT")
	api.Handle("/users/{id}/ban", manager(http.HandlerFunc(s.banUser))).Methods("POST")
	api.Handle("/users/{id}/ban", manager(http.HandlerFunc(s.unbanUser))).Methods("DELETE")
	api.Handle("/users/{id}/sessions", manager(http.HandlerFunc(s.revokeUserSessions))).Methods("DELETE")
	api.Handle("/users/{id}/impersonate", manager(http.HandlerFunc(s.impersonateUser))).Methods("POST")
	api.Handle("/users/{id}/capabilities", manager(http.HandlerFunc(s.getCapabilities))).Methods("GET")

	// Roles and permissions
	api.Handle("/roles", manager(http.HandlerFunc(s.listRoles))).Methods("GET")
	api.Handle("/roles", admin(http.HandlerFunc(s.createRole))).Methods("POST")
	api.Handle("/roles/{id}", manager(http.HandlerFunc(s.getRole))).Methods("GET")
	api.Handle("/roles/{id}", admin(http.HandlerFunc(s.updateRole))).Methods("PUT")
	api.Handle("/roles/{id}", admin(http.HandlerFunc(s.deleteRole))).Methods("DELETE")
	api.Handle("/roles/{id}/permissions", admin(http.HandlerFunc(s.setRolePermissions))).Methods("PUT")
	api.Handle("/roles/by-name/{name}/permissions", manager(http.HandlerFunc(s.getRolePermissions))).Methods("GET")
	api.Handle("/permissions", manager(http.HandlerFunc(s.listPermissions))).Methods("GET")
	api.Handle("/permissions", admin(http.HandlerFunc(s.createPermission))).Methods("POST")

	// Organizations
	api.Handle("/orgs", admin(http.HandlerFunc(s.createOrganization))).Methods("POST")
	api.Handle("/orgs", manager(http.HandlerFunc(s.listOrganizations))).Methods("GET")
	api.Handle("/orgs/by-slug/{slug}", manager(http.HandlerFunc(s.getOrganizationBySlug))).Methods("GET")
	api.Handle("/orgs/{id}", manager(http.HandlerFunc(s.getOrganization))).Methods("GET")
	api.Handle("/orgs/{id}", admin(http.HandlerFunc(s.updateOrganization))).Methods("PUT")
	api.Handle("/orgs/{id}", admin(http.HandlerFunc(s.deleteOrganization))).Methods("DELETE")
	api.Handle("/orgs/{id}/members", manager(http.HandlerFunc(s.listOrganizationMembers))).Methods("GET")

	// Session
	api.Handle("/session/active-organization", http.HandlerFunc(s.setActiveOrganization)).Methods("PUT")
	api.Handle("/session", http.HandlerFunc(s.logout)).Methods("DELETE")

	// Audit
	api.Handle("/audit", admin(http.HandlerFunc(s.listAudit))).Methods("GET")
}

// recordDecision counts one policy-gated operation outcome.
func (s *Server) recordDecision(action string, err error) {
	if s.metrics != nil {
		s.metrics.RecordDecision(action, err)
	}
}
