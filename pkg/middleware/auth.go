package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stewardhq/steward/pkg/auth"
	"github.com/stewardhq/steward/pkg/contextkeys"
	"github.com/stewardhq/steward/pkg/httputil"
	"github.com/stewardhq/steward/pkg/sessions"
	"github.com/stewardhq/steward/pkg/users"
)

// SessionResolver resolves bearer tokens to live sessions.
type SessionResolver interface {
	GetByToken(ctx context.Context, token string) (*sessions.Session, error)
}

// UserResolver loads user projections for authenticated sessions.
type UserResolver interface {
	Get(ctx context.Context, id string) (*auth.User, error)
}

// SessionAuth authenticates requests by bearer token and places the
// resolved actor in the request context. The actor's role is re-read from
// the user row on every request, so a role change takes effect without
// reissuing sessions.
type SessionAuth struct {
	sessions SessionResolver
	users    UserResolver
}

// NewSessionAuth creates the session authentication middleware
func NewSessionAuth(sessionStore SessionResolver, userStore UserResolver) *SessionAuth {
	return &SessionAuth{sessions: sessionStore, users: userStore}
}

// Handler rejects requests without a live session. Banned accounts are
// shut out with a 403 even when their session is still valid.
func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.WriteUnauthorized(w, "missing bearer token")
			return
		}

		session, err := m.sessions.GetByToken(r.Context(), token)
		if err != nil {
			if auth.IsNotFound(err) {
				httputil.WriteUnauthorized(w, "invalid or expired session")
				return
			}
			httputil.WriteInternalError(w, err)
			return
		}

		user, err := m.users.Get(r.Context(), session.UserID)
		if err != nil {
			if auth.IsNotFound(err) {
				httputil.WriteUnauthorized(w, "invalid or expired session")
				return
			}
			httputil.WriteInternalError(w, err)
			return
		}
		if user.Banned {
			httputil.WriteForbidden(w, "account is banned")
			return
		}

		actor := users.Actor{
			ID:          &user.ID,
			Role:        user.PlatformRole,
			ActiveOrgID: session.ActiveOrganizationID,
		}

		ctx := contextkeys.WithActor(r.Context(), actor)
		ctx = contextkeys.WithSession(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor retrieves the authenticated actor placed by Handler.
func GetActor(r *http.Request) (users.Actor, bool) {
	actor, ok := r.Context().Value(contextkeys.ActorKey).(users.Actor)
	return actor, ok
}

// GetSession retrieves the session placed by Handler.
func GetSession(r *http.Request) (*sessions.Session, bool) {
	session, ok := r.Context().Value(contextkeys.SessionKey).(*sessions.Session)
	return session, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireRole gates a route behind a minimum platform role.
func RequireRole(minimum auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r)
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if actor.Role.Level() < minimum.Level() {
				httputil.WriteForbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
