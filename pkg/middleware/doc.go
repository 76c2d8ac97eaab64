// Package middleware provides the HTTP request gates: bearer-token session
// authentication that resolves the acting user, minimum-role route guards,
// and Redis-backed distributed rate limiting.
package middleware
