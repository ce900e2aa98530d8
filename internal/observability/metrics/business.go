package metrics

import (
	"time"
)

// RecordFetch records a completed fetch: the attempt outcome, its total
// duration and, on success, the body size.
//
// Example:
//
//	start := time.Now()
//	resp, err := f.Fetch(ctx, req)
//	metrics.RecordFetch(req.Platform, err == nil, time.Since(start), len(resp.Body))
func RecordFetch(platform string, success bool, duration time.Duration, size int) {
	platform = platformLabel(platform)
	FetchDuration.WithLabelValues(platform).Observe(duration.Seconds())
	if success {
		FetchSize.Observe(float64(size))
	}
}

// RecordFetchAttempt records one HTTP attempt.
func RecordFetchAttempt(platform string, success bool) {
	FetchAttemptsTotal.WithLabelValues(platformLabel(platform), resultLabel(success)).Inc()
}

// RecordRetry records a retry scheduled for the given platform.
func RecordRetry(platform string) {
	RetryAttemptsTotal.WithLabelValues(platformLabel(platform)).Inc()
}

// RecordCacheOp records a cache operation outcome.
func RecordCacheOp(op, result string) {
	CacheOperationsTotal.WithLabelValues(op, result).Inc()
}

// RecordCacheEviction records evicted entries. A zero count is ignored.
func RecordCacheEviction(reason string, count int) {
	if count <= 0 {
		return
	}
	CacheEvictionsTotal.WithLabelValues(reason).Add(float64(count))
}

// RecordScrape records a dispatcher outcome.
// Cache hits are counted separately from fresh successes.
func RecordScrape(contentType string, success, fromCache bool, duration time.Duration) {
	result := resultLabel(success)
	if success && fromCache {
		result = "cache_hit"
	}
	ScrapeTotal.WithLabelValues(contentType, result).Inc()
	ScrapeDuration.WithLabelValues(contentType).Observe(duration.Seconds())
}

// SetCircuitBreakerState publishes a breaker state.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func platformLabel(platform string) string {
	if platform == "" {
		return "default"
	}
	return platform
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
