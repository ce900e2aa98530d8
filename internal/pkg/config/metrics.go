package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics tracks configuration state for one component.
//
// Metrics generated (parameterized by component name):
//   - webintel_{component}_config_load_timestamp
//   - webintel_{component}_config_validation_errors_total{field}
//   - webintel_{component}_config_fallbacks_total{field,type}
//   - webintel_{component}_config_fallback_active
//
// Example usage:
//
//	m := config.NewConfigMetrics("worker")
//	result := config.LoadEnvWithFallback("CACHE_CLEANUP_SCHEDULE", def, config.ValidateCronSchedule)
//	if result.FallbackApplied {
//	    m.RecordValidationError("cleanup_schedule")
//	    m.RecordFallback("cleanup_schedule", "default")
//	}
//	m.RecordLoadTimestamp()
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge

	componentName string
}

// NewConfigMetrics registers the metrics with the default registry.
// Calling it twice for the same component panics.
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return NewConfigMetricsWith(prometheus.DefaultRegisterer, componentName)
}

// NewConfigMetricsWith registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewConfigMetricsWith(reg prometheus.Registerer, componentName string) *ConfigMetrics {
	factory := promauto.With(reg)
	prefix := "webintel_" + componentName

	return &ConfigMetrics{
		LoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_config_load_timestamp",
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),
		ValidationErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_config_validation_errors_total",
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_config_fallbacks_total",
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field", "type"}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_config_fallback_active",
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),
		componentName: componentName,
	}
}

// ComponentName returns the component the metrics were created for.
func (m *ConfigMetrics) ComponentName() string {
	return m.componentName
}

// RecordLoadTimestamp sets the load timestamp to now.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError counts a rejected value for field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback counts a fallback for field. fallbackType is usually
// "default".
func (m *ConfigMetrics) RecordFallback(field, fallbackType string) {
	m.FallbacksTotal.WithLabelValues(field, fallbackType).Inc()
}

// SetFallbackActive reports whether any fallback is in effect.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}

// Apply records the outcome of one load result and logs its warnings
// through warn. It reports whether a fallback was applied.
func (m *ConfigMetrics) Apply(field string, result ConfigLoadResult, warn func(field, warning string)) bool {
	if !result.FallbackApplied {
		return false
	}
	m.RecordValidationError(field)
	m.RecordFallback(field, "default")
	if warn != nil {
		for _, w := range result.Warnings {
			warn(field, w)
		}
	}
	return true
}
