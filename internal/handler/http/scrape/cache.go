package scrape

import (
	"errors"
	"log/slog"
	"net/http"

	"webintel/internal/handler/http/respond"
)

// StatsHandler serves GET /v1/cache/stats.
type StatsHandler struct{ Cache CacheAdmin }

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Cache.Stats())
}

// ClearHandler serves DELETE /v1/cache and reports how many entries were
// removed.
type ClearHandler struct {
	Cache  CacheAdmin
	Logger *slog.Logger
}

func (h ClearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	removed := h.Cache.Clear()
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("cache cleared via API", slog.Int("removed", removed))
	respond.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// InvalidateHandler serves DELETE /v1/cache/entry?url=... Equivalent URLs
// (host case, fragment, trailing slash and host aliases such as
// twitter.com and x.com) share one entry.
type InvalidateHandler struct{ Cache CacheAdmin }

func (h InvalidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	removed := h.Cache.Invalidate(target)
	code := http.StatusOK
	if !removed {
		code = http.StatusNotFound
	}
	respond.JSON(w, code, map[string]any{"url": target, "removed": removed})
}
