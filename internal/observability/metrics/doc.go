// Package metrics provides the Prometheus collectors for the acquisition
// pipeline.
//
// This package centralizes the domain metrics:
//   - fetch attempts, duration, body size and retries per platform
//   - SSRF rejections
//   - cache operations and evictions
//   - scrape outcomes per content type
//
// HTTP server metrics live next to the middleware in internal/handler/http.
// All collectors are registered with the Prometheus default registry via
// promauto and exposed on /metrics.
//
// Example usage:
//
//	start := time.Now()
//	resp, err := f.Fetch(ctx, req)
//	metrics.RecordFetch("github", err == nil, time.Since(start), len(resp.Body))
package metrics
