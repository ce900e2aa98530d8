package scrape

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"webintel/internal/domain/entity"
	"webintel/internal/handler/http/respond"
	scrapeUC "webintel/internal/usecase/scrape"
)

// maxTimeout caps the per-call timeout a client may request.
const maxTimeout = 2 * time.Minute

var hintable = map[entity.ContentType]bool{
	entity.ContentTypeTwitter: true,
	entity.ContentTypeGitHub:  true,
	entity.ContentTypeGist:    true,
	entity.ContentTypeYouTube: true,
	entity.ContentTypeReddit:  true,
	entity.ContentTypeWebpage: true,
}

// GetHandler serves GET /v1/scrape?url=...
//
// Optional query parameters:
//   - no_cache=true bypasses the content cache
//   - platform=<type> skips classification
//   - timeout=<duration> bounds the call, up to two minutes
//
// The body is always the result envelope; the status code reflects its
// failure cause.
type GetHandler struct{ Svc Scraper }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("url")
	if target == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	opts, err := parseOptions(q)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	respond.Result(w, h.Svc.ScrapeWithOptions(r.Context(), target, opts))
}

func parseOptions(q url.Values) (scrapeUC.Options, error) {
	var opts scrapeUC.Options

	if v := q.Get("no_cache"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid no_cache value %q", v)
		}
		opts.NoCache = b
	}

	if v := q.Get("platform"); v != "" {
		ct := entity.ContentType(v)
		if !hintable[ct] {
			return opts, fmt.Errorf("invalid platform %q", v)
		}
		opts.PlatformHint = ct
	}

	if v := q.Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return opts, fmt.Errorf("invalid timeout %q", v)
		}
		if d > maxTimeout {
			return opts, fmt.Errorf("timeout must be at most %s", maxTimeout)
		}
		opts.Timeout = d
	}

	return opts, nil
}
