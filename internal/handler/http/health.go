// Package http provides the HTTP API of the content pipeline: middleware,
// health probes and Prometheus instrumentation. Route handlers live in
// sub-packages.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"webintel/internal/infra/cache"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"` // healthy, degraded or unhealthy
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is the result of one health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// CacheStatter reports cache statistics.
type CacheStatter interface {
	Stats() cache.Stats
}

// BreakerReporter reports circuit breaker states keyed by platform.
type BreakerReporter interface {
	BreakerStates() map[string]string
}

// HealthHandler reports the state of the cache directory and the upstream
// circuit breakers. An unusable cache directory makes the service unhealthy
// (503). Open breakers only degrade it: other platforms still work.
type HealthHandler struct {
	Version  string
	Cache    CacheStatter
	Breakers BreakerReporter
	Logger   *slog.Logger
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]CheckStatus)

	if h.Cache != nil {
		checks["cache"] = checkCache(h.Cache.Stats())
	}
	if h.Breakers != nil {
		checks["circuit_breakers"] = checkBreakers(h.Breakers.BreakerStates())
	}

	status := "healthy"
	code := http.StatusOK
	for _, c := range checks {
		switch c.Status {
		case "unhealthy":
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		case "degraded":
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger().Error("health: failed to encode response", slog.Any("error", err))
	}
}

func (h *HealthHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func checkCache(s cache.Stats) CheckStatus {
	if !s.Enabled {
		return CheckStatus{Status: "healthy", Message: "disabled"}
	}

	details := map[string]any{
		"dir":         s.CacheDir,
		"entries":     s.TotalEntries,
		"expired":     s.ExpiredCount,
		"size_mb":     s.TotalSizeMB,
		"max_entries": s.MaxEntries,
		"max_size_mb": s.MaxSizeMB,
	}

	info, err := os.Stat(s.CacheDir)
	switch {
	case os.IsNotExist(err):
		// created lazily on first write
		return CheckStatus{Status: "healthy", Message: "cache directory not created yet", Details: details}
	case err != nil:
		return CheckStatus{Status: "unhealthy", Message: err.Error(), Details: details}
	case !info.IsDir():
		return CheckStatus{Status: "unhealthy", Message: "cache path is not a directory", Details: details}
	}

	if s.MaxEntries > 0 && s.TotalEntries > s.MaxEntries {
		return CheckStatus{Status: "degraded", Message: "cache above entry limit", Details: details}
	}
	return CheckStatus{Status: "healthy", Details: details}
}

func checkBreakers(states map[string]string) CheckStatus {
	details := make(map[string]any, len(states))
	var open []string
	for platform, state := range states {
		details[platform] = state
		if state == "open" {
			open = append(open, platform)
		}
	}
	if len(open) == 0 {
		return CheckStatus{Status: "healthy", Details: details}
	}
	sort.Strings(open)
	details["open"] = open
	return CheckStatus{Status: "degraded", Message: "upstream circuit open", Details: details}
}

// ReadyHandler answers readiness probes: 200 once Ready returns true.
type ReadyHandler struct {
	Ready func() bool
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if h.Ready != nil && !h.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LiveHandler answers liveness probes and always returns 200.
type LiveHandler struct{}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
