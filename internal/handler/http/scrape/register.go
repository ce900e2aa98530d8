// Package scrape serves the pipeline over HTTP: single and batch scrapes
// plus cache administration.
package scrape

import (
	"context"
	"log/slog"
	"net/http"

	"webintel/internal/domain/entity"
	"webintel/internal/infra/cache"
	scrapeUC "webintel/internal/usecase/scrape"
)

// Scraper is the part of the pipeline the handlers drive.
type Scraper interface {
	ScrapeWithOptions(ctx context.Context, rawURL string, opts scrapeUC.Options) entity.Result
	ScrapeMany(ctx context.Context, urls []string, opts scrapeUC.Options) []entity.Result
}

// CacheAdmin is the part of the content cache exposed for administration.
type CacheAdmin interface {
	Stats() cache.Stats
	Clear() int
	Invalidate(url string) bool
}

// Config bounds what a single API call may ask of the pipeline.
type Config struct {
	// MaxBatchURLs caps the number of URLs in one batch request.
	MaxBatchURLs int
}

// DefaultConfig returns the API limits used when none are configured.
func DefaultConfig() Config {
	return Config{MaxBatchURLs: 20}
}

// Register mounts the scrape and cache routes on mux.
func Register(mux *http.ServeMux, svc Scraper, store CacheAdmin, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBatchURLs <= 0 {
		cfg.MaxBatchURLs = DefaultConfig().MaxBatchURLs
	}

	mux.Handle("GET /v1/scrape", GetHandler{Svc: svc})
	mux.Handle("POST /v1/scrape/batch", BatchHandler{Svc: svc, MaxURLs: cfg.MaxBatchURLs, Logger: logger})

	mux.Handle("GET /v1/cache/stats", StatsHandler{Cache: store})
	mux.Handle("DELETE /v1/cache", ClearHandler{Cache: store, Logger: logger})
	mux.Handle("DELETE /v1/cache/entry", InvalidateHandler{Cache: store})
}
