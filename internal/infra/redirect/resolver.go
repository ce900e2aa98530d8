// Package redirect resolves known URL shorteners to their destination
// before a URL is classified. Only hosts in the shortener set cause network
// traffic; every other URL is returned unchanged.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"webintel/internal/infra/fetcher"
	"webintel/internal/usecase/scrape"
)

// DefaultShorteners is the fixed set of shortener hosts, without "www.".
var DefaultShorteners = []string{
	"t.co", "bit.ly", "tinyurl.com", "goo.gl", "ow.ly", "is.gd", "buff.ly",
	"j.mp", "rb.gy", "cutt.ly", "youtu.be", "redd.it", "fb.me", "lnkd.in",
	"amzn.to", "amzn.eu", "shorturl.at", "trib.al", "dlvr.it", "spr.ly",
	"soo.gd", "s.id", "rebrand.ly", "tiny.cc", "v.gd", "shortlink.com",
}

// Result describes one resolution. Err is set on failure and wraps a scrape
// sentinel; it is not serialized.
type Result struct {
	Success           bool   `json:"success"`
	OriginalURL       string `json:"original_url"`
	ResolvedURL       string `json:"resolved_url"`
	WasShortened      bool   `json:"was_shortened"`
	RedirectsFollowed int    `json:"redirects_followed"`
	Error             string `json:"error,omitempty"`
	Err               error  `json:"-"`
}

// HeadFetcher is the subset of the fetcher the resolver needs.
type HeadFetcher interface {
	Head(ctx context.Context, rawURL string, maxRedirects int, timeout time.Duration) (*fetcher.HeadResult, error)
	ValidateURL(ctx context.Context, rawURL string) error
}

// Config bounds a resolution.
type Config struct {
	MaxRedirects int
	Timeout      time.Duration
	Shorteners   []string
}

// DefaultConfig returns 10 redirects, a 10 s budget and DefaultShorteners.
func DefaultConfig() Config {
	return Config{
		MaxRedirects: 10,
		Timeout:      10 * time.Second,
		Shorteners:   DefaultShorteners,
	}
}

// Resolver resolves shortener URLs.
type Resolver struct {
	fetcher    HeadFetcher
	cfg        Config
	shorteners map[string]struct{}
	logger     *slog.Logger
}

// New creates a Resolver. A nil logger uses slog.Default().
func New(f HeadFetcher, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Shorteners) == 0 {
		cfg.Shorteners = DefaultShorteners
	}
	set := make(map[string]struct{}, len(cfg.Shorteners))
	for _, h := range cfg.Shorteners {
		set[strings.ToLower(h)] = struct{}{}
	}
	return &Resolver{fetcher: f, cfg: cfg, shorteners: set, logger: logger}
}

// IsShortener reports whether rawURL's host, minus a "www." prefix, is a
// known shortener.
func (r *Resolver) IsShortener(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	_, ok := r.shorteners[host]
	return ok
}

// Resolve follows rawURL's redirects when it is a shortener. The final URL
// is validated by the SSRF gate; a private destination fails the resolution
// with an error wrapping scrape.ErrSSRFBlocked.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) Result {
	rawURL = strings.TrimSpace(rawURL)
	res := Result{OriginalURL: rawURL, ResolvedURL: rawURL}

	if rawURL == "" {
		return r.fail(res, fmt.Errorf("%w: empty URL", scrape.ErrInvalidURL), "Invalid URL provided")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return r.fail(res, fmt.Errorf("%w: %v", scrape.ErrInvalidURL, err), "Failed to parse URL: "+err.Error())
	}
	if !r.IsShortener(rawURL) {
		res.Success = true
		return res
	}

	res.WasShortened = true

	head, err := r.fetcher.Head(ctx, rawURL, r.cfg.MaxRedirects, r.cfg.Timeout)
	if err != nil {
		return r.fail(res, err, r.describe(err))
	}
	res.ResolvedURL = head.FinalURL
	res.RedirectsFollowed = head.Redirects

	if err := r.fetcher.ValidateURL(ctx, head.FinalURL); err != nil {
		r.logger.Warn("resolved URL failed SSRF validation",
			slog.String("url", rawURL),
			slog.String("resolved_url", head.FinalURL),
			slog.Any("error", err))
		return r.fail(res, err, "Resolved URL failed security validation: "+err.Error())
	}

	r.logger.Debug("resolved shortener",
		slog.String("url", rawURL),
		slog.String("resolved_url", head.FinalURL),
		slog.Int("redirects", head.Redirects))
	res.Success = true
	return res
}

func (r *Resolver) fail(res Result, err error, msg string) Result {
	res.Success = false
	res.Err = err
	res.Error = msg
	return res
}

func (r *Resolver) describe(err error) string {
	var fe *fetcher.FetchError
	switch {
	case errors.Is(err, scrape.ErrSSRFBlocked):
		r.logger.Warn("shortener redirected to a blocked destination", slog.Any("error", err))
		return "Resolved URL failed security validation: " + err.Error()
	case errors.Is(err, scrape.ErrTooManyRedirects):
		return fmt.Sprintf("Too many redirects (max: %d)", r.cfg.MaxRedirects)
	case errors.Is(err, scrape.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Request timeout (%s)", r.cfg.Timeout)
	case errors.As(err, &fe):
		return "Request failed: " + fe.Error()
	default:
		return "Request failed: " + err.Error()
	}
}

// ResolveURL is Resolve reduced to the resolved URL and a sentinel-wrapping
// error, for callers that only route on the outcome.
func (r *Resolver) ResolveURL(ctx context.Context, rawURL string) (string, error) {
	res := r.Resolve(ctx, rawURL)
	if !res.Success {
		return res.ResolvedURL, fmt.Errorf("%s: %w", res.Error, res.Err)
	}
	return res.ResolvedURL, nil
}
