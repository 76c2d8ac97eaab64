// Package config loads environment-driven configuration for the service
// and validates it at startup.
package config
