package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"webintel/internal/usecase/scrape"
)

// HeadResult is the outcome of following a redirect chain.
type HeadResult struct {
	FinalURL   string
	Redirects  int
	StatusCode int
}

// Head follows the redirect chain of rawURL with HEAD requests, validating
// every hop before it is requested. Servers that reject HEAD (405, 501) are
// retried once with GET; the body is never read.
//
// The chain is walked manually so that Redirects is exact and a hop to a
// private address is rejected before any connection is made to it.
func (f *Fetcher) Head(ctx context.Context, rawURL string, maxRedirects int, timeout time.Duration) (*HeadResult, error) {
	if timeout <= 0 {
		timeout = f.cfg.Timeouts.FetcherConnect + f.cfg.Timeouts.FetcherRead
	}
	headCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Transport: f.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	current := rawURL
	for redirects := 0; ; redirects++ {
		if err := f.validator.ValidateStrict(headCtx, current); err != nil {
			return nil, &FetchError{Kind: KindSSRFBlocked, Detail: err.Error(), Err: err}
		}

		resp, err := f.headOnce(headCtx, client, current, http.MethodHead)
		if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
			_ = resp.Body.Close()
			resp, err = f.headOnce(headCtx, client, current, http.MethodGet)
		}
		if err != nil {
			return nil, classify(ctx, headCtx.Err() != nil, err)
		}
		_ = resp.Body.Close()

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return &HeadResult{FinalURL: current, Redirects: redirects, StatusCode: resp.StatusCode}, nil
		}

		if redirects >= maxRedirects {
			return nil, &FetchError{
				Kind:   KindRedirectLimit,
				Detail: fmt.Sprintf("more than %d redirects", maxRedirects),
				Err:    scrape.ErrTooManyRedirects,
			}
		}

		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return nil, &FetchError{
				Kind:   KindNetworkError,
				Detail: fmt.Sprintf("invalid Location header %q", location),
				Err:    fmt.Errorf("%w: %v", scrape.ErrMalformedResponse, err),
			}
		}
		current = next.String()
	}
}

func (f *Fetcher) headOnce(ctx context.Context, client *http.Client, rawURL, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		context.WithValue(ctx, connectTimeoutKey{}, f.cfg.Timeouts.FetcherConnect),
		method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scrape.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	return client.Do(req)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
