// Package tracing provides OpenTelemetry tracing integration.
//
// InitTracerProvider installs an SDK tracer provider with a ratio-based,
// parent-respecting sampler and the W3C trace context propagator. No
// exporter is attached by default; spans still carry ids that the logging
// middleware and the X-Trace-Id response header expose for correlation.
//
// Example usage:
//
//	import "webintel/internal/observability/tracing"
//
//	func main() {
//	    shutdown, err := tracing.InitTracerProvider(ctx, tracing.DefaultConfig())
//	    defer shutdown(context.Background())
//	}
//
//	func scrape(ctx context.Context, url string) {
//	    ctx, span := tracing.StartSpan(ctx, "scrape.dispatch", attribute.String("url", url))
//	    defer span.End()
//	}
package tracing
