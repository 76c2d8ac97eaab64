// Package observability bundles the operational concerns of the service:
// structured JSON logging over slog, Prometheus metrics including policy
// decision counters, health probes for the backing stores, OpenTelemetry
// bootstrap, panic recovery, and graceful shutdown.
package observability
