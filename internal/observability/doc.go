// Package observability groups the logging, metrics and tracing
// infrastructure shared by the API server, the worker and the CLI.
//
// Subpackages:
//   - logging: slog construction and context propagation
//   - metrics: Prometheus collectors for fetch, cache and scrape
//   - tracing: OpenTelemetry tracer provider and HTTP middleware
//
// Example usage:
//
//	import (
//	    "webintel/internal/observability/logging"
//	    "webintel/internal/observability/tracing"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    shutdown, _ := tracing.InitTracerProvider(ctx, tracing.DefaultConfig())
//	    defer shutdown(context.Background())
//	}
package observability
