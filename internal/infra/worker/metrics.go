package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webintel/internal/pkg/config"
)

// Metrics are the janitor process metrics. The embedded ConfigMetrics
// track configuration fallbacks.
//
// Janitor metrics:
//   - webintel_janitor_runs_total{status}
//   - webintel_janitor_duration_seconds
//   - webintel_janitor_entries_removed_total
//   - webintel_janitor_last_success_timestamp
type Metrics struct {
	*config.ConfigMetrics

	RunsTotal            *prometheus.CounterVec
	DurationSeconds      prometheus.Histogram
	EntriesRemovedTotal  prometheus.Counter
	LastSuccessTimestamp prometheus.Gauge
}

// NewMetrics registers the janitor metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the janitor metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webintel_janitor_runs_total",
			Help: "Total number of cache cleanup runs by status",
		}, []string{"status"}),

		DurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "webintel_janitor_duration_seconds",
			Help:    "Duration of cache cleanup runs in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30, 60},
		}),

		EntriesRemovedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "webintel_janitor_entries_removed_total",
			Help: "Total number of expired or corrupt cache entries removed",
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "webintel_janitor_last_success_timestamp",
			Help: "Unix timestamp of the last successful cleanup run",
		}),
	}
}

// RecordRun records one finished run.
func (m *Metrics) RecordRun(success bool, seconds float64, removed int) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.DurationSeconds.Observe(seconds)
	if success {
		m.EntriesRemovedTotal.Add(float64(removed))
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
}
