// Package contextkeys provides centralized context key definitions.
// Every context key used across the application is defined here so key
// usage stays discoverable and collision-free.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains the users.Actor resolved by the session
	// middleware. Required by every protected endpoint.
	ActorKey Key = "actor"

	// SessionKey contains the *sessions.Session behind the request.
	SessionKey Key = "session"

	// RequestIDKey contains the request ID string (UUID).
	RequestIDKey Key = "request_id"

	// LoggerKey contains a request-scoped *observability.Logger.
	LoggerKey Key = "logger"
)

// WithActor adds the resolved actor to the context
func WithActor(ctx context.Context, actor interface{}) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// WithSession adds the session to the context
func WithSession(ctx context.Context, session interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
