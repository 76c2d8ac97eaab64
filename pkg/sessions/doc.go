// Package sessions stores authenticated sessions in PostgreSQL, including
// impersonated sessions and the per-session active organization that
// scopes manager operations. A cron sweeper reclaims expired rows.
package sessions
