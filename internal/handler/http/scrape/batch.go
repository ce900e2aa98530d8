package scrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"webintel/internal/domain/entity"
	"webintel/internal/handler/http/respond"
	"webintel/internal/observability/logging"
	scrapeUC "webintel/internal/usecase/scrape"
)

// BatchRequest is the body of POST /v1/scrape/batch.
type BatchRequest struct {
	URLs    []string `json:"urls"`
	NoCache bool     `json:"no_cache,omitempty"`
}

// BatchResponse lists one envelope per requested URL, in request order.
type BatchResponse struct {
	Results   []entity.Result `json:"results"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// BatchHandler serves POST /v1/scrape/batch. Individual failures are
// reported inside the envelopes; the call itself succeeds with 200.
type BatchHandler struct {
	Svc     Scraper
	MaxURLs int
	Logger  *slog.Logger
}

func (h BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.SafeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return
		}
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		respond.SafeError(w, http.StatusBadRequest, errors.New("urls is required"))
		return
	}
	if len(urls) > h.MaxURLs {
		respond.SafeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("batch too large: %d urls, at most %d allowed", len(urls), h.MaxURLs))
		return
	}

	results := h.Svc.ScrapeMany(r.Context(), urls, scrapeUC.Options{NoCache: req.NoCache})

	out := BatchResponse{Results: results}
	for i := range results {
		if results[i].Success {
			out.Succeeded++
		} else {
			out.Failed++
			results[i].Error = respond.SanitizeMessage(results[i].Error)
		}
	}

	logging.FromContext(r.Context()).Info("batch scrape completed",
		slog.Int("urls", len(urls)),
		slog.Int("succeeded", out.Succeeded),
		slog.Int("failed", out.Failed))

	respond.JSON(w, http.StatusOK, out)
}
