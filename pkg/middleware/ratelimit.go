package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stewardhq/steward/pkg/httputil"
	"github.com/stewardhq/steward/pkg/observability"
)

// RateLimitConfig defines one rate limit window.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultRateLimitConfig is applied to unauthenticated traffic.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{RequestsPerWindow: 60, WindowDuration: time.Minute}
}

// PerUserRateLimitConfig is applied to authenticated actors.
func PerUserRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{RequestsPerWindow: 300, WindowDuration: time.Minute}
}

// DistributedRateLimiter implements rate limiting over Redis so limits are
// shared across instances. Redis failures fail open: rejecting every
// request because the limiter store is down would be worse than briefly
// not limiting.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{redis: redisClient, config: config, prefix: prefix}
}

// Allow counts one request against the key's window and reports whether it
// is still under the limit.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// Reset clears the window for a key.
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// RateLimitMiddleware applies per-actor limits to authenticated requests
// and per-IP limits to everything else.
type RateLimitMiddleware struct {
	actorLimiter *DistributedRateLimiter
	anonLimiter  *DistributedRateLimiter
	metrics      *observability.Metrics
	logger       *observability.Logger
}

// NewRateLimitMiddleware creates the rate limiting middleware. Metrics may
// be nil.
func NewRateLimitMiddleware(redisClient *redis.Client, metrics *observability.Metrics, logger *observability.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		actorLimiter: NewDistributedRateLimiter(redisClient, PerUserRateLimitConfig(), "ratelimit:actor"),
		anonLimiter:  NewDistributedRateLimiter(redisClient, DefaultRateLimitConfig(), "ratelimit:anon"),
		metrics:      metrics,
		logger:       logger,
	}
}

// Handler wraps an HTTP handler with distributed rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key, scope string
		limiter := m.anonLimiter

		if actor, ok := GetActor(r); ok && actor.ID != nil {
			key = "actor:" + *actor.ID
			scope = "actor"
			limiter = m.actorLimiter
		} else {
			key = "ip:" + clientIP(r)
			scope = "anon"
		}

		allowed, err := limiter.Allow(r.Context(), key)
		if err != nil {
			m.logger.WithError(err).Warn("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
			}
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
