// Package api exposes the administrative operations over HTTP: user
// management, role assignment, capability queries, role and permission
// catalogs, organizations, sessions, and the audit log.
package api
