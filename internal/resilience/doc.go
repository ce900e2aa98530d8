// Package resilience groups the fault-tolerance primitives the fetcher wraps
// around every outbound request.
//
//   - circuitbreaker keeps one gobreaker per platform so a failing upstream
//     stops taking traffic without affecting the others.
//   - retry retries transient failures with exponential backoff and jitter,
//     honoring Retry-After hints and context cancellation.
//
// Usage:
//
//	breakers := circuitbreaker.NewRegistry(circuitbreaker.PlatformConfig)
//	out, err := breakers.Get("github").Execute(func() (interface{}, error) {
//	    return client.Do(req)
//	})
package resilience
