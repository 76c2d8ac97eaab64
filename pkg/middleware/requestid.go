package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stewardhq/steward/pkg/contextkeys"
	"github.com/stewardhq/steward/pkg/observability"
)

// RequestIDHeader is the header the request ID is read from and echoed on.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an ID and a request-scoped logger. An
// inbound X-Request-ID is trusted and propagated; otherwise a new UUID is
// generated. Panics below this middleware become a 500 instead of tearing
// down the connection.
func RequestID(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := contextkeys.WithRequestID(r.Context(), requestID)
			reqLogger := logger.WithField("request_id", requestID)
			ctx = contextkeys.WithLogger(ctx, reqLogger)

			defer func() {
				if err := observability.MustRecover(recover()); err != nil {
					reqLogger.WithError(err).
						WithField("path", r.URL.Path).
						Error("request handler panicked")
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request-scoped logger, or the fallback when the
// request did not pass through RequestID.
func GetLogger(r *http.Request, fallback *observability.Logger) *observability.Logger {
	if logger, ok := r.Context().Value(contextkeys.LoggerKey).(*observability.Logger); ok {
		return logger
	}
	return fallback
}
