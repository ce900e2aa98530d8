package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics track outbound requests made by the resilient fetcher.
var (
	// FetchAttemptsTotal counts individual HTTP attempts (retries included)
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webintel_fetch_attempts_total",
			Help: "Total number of outbound fetch attempts",
		},
		[]string{"platform", "result"}, // result: success, failure
	)

	// FetchDuration measures one fetch including retries and backoff
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webintel_fetch_duration_seconds",
			Help:    "Time taken by a fetch including retries",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8, 25.6},
		},
		[]string{"platform"},
	)

	// FetchSize measures fetched body size in bytes
	FetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "webintel_fetch_size_bytes",
			Help: "Fetched response body size in bytes",
			Buckets: []float64{
				256, 1024, 4096, 16384, 65536, 262144,
				1048576, 2097152, 5000000,
			},
		},
	)

	// RetryAttemptsTotal counts backoff sleeps scheduled by the retry engine
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webintel_retry_attempts_total",
			Help: "Total number of retries scheduled after a transient failure",
		},
		[]string{"platform"},
	)

	// SSRFBlockedTotal counts URLs rejected by the SSRF gate
	SSRFBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webintel_ssrf_blocked_total",
			Help: "Total number of URLs rejected by SSRF protection",
		},
	)

	// CircuitBreakerState exposes breaker state (0 closed, 1 half-open, 2 open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "webintel_circuit_breaker_state",
			Help: "Circuit breaker state by breaker name",
		},
		[]string{"name"},
	)
)

// Cache metrics track the on-disk content cache.
var (
	// CacheOperationsTotal counts cache operations by outcome
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webintel_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"op", "result"}, // op: get, set, invalidate; result: hit, miss, ok, skip, error
	)

	// CacheEvictionsTotal counts entries removed by the cache itself
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webintel_cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"reason"}, // reason: expired, count, size, corrupt
	)
)

// Scrape metrics track dispatcher outcomes.
var (
	// ScrapeTotal counts completed scrape requests
	ScrapeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webintel_scrape_total",
			Help: "Total number of scrape requests by content type and result",
		},
		[]string{"content_type", "result"}, // result: success, failure, cache_hit
	)

	// ScrapeDuration measures end-to-end scrape latency
	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webintel_scrape_duration_seconds",
			Help:    "End-to-end scrape duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"content_type"},
	)
)
