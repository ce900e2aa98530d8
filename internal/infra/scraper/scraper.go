// Package scraper implements the platform strategies of the acquisition
// pipeline: Twitter/X, GitHub, Gist, YouTube, Reddit and generic webpages.
//
// Every strategy performs its network access through the resilient fetcher,
// either directly or through an SDK client built on Fetcher.Transport, so
// SSRF gating, size limits, retry and circuit breaking apply uniformly.
// Returned text is always sanitized.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"webintel/internal/infra/fetcher"
	"webintel/internal/infra/sanitizer"
	"webintel/internal/usecase/scrape"
)

// HTTPFetcher is the subset of the fetcher used by strategies.
type HTTPFetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) (*fetcher.Response, error)
}

// apiClient issues platform-tagged requests through the fetcher.
type apiClient struct {
	f        HTTPFetcher
	platform string
}

// get fetches rawURL and returns the buffered response.
func (c apiClient) get(ctx context.Context, rawURL string, header http.Header) (*fetcher.Response, error) {
	return c.f.Fetch(ctx, fetcher.Request{
		URL:      rawURL,
		Headers:  header,
		Platform: c.platform,
	})
}

// getJSON fetches rawURL and decodes the body into v.
func (c apiClient) getJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}

	resp, err := c.get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", scrape.ErrMalformedResponse, c.platform, err)
	}
	return nil
}

// statusMessage replaces the generic description of an HTTP failure with a
// platform-specific one when the status is listed in messages.
func statusMessage(err error, messages map[int]string) error {
	status := fetcher.StatusOf(err)
	msg, ok := messages[status]
	if !ok {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, errors.Join(scrape.ErrNotFound, err))
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// cleanText sanitizes free text, letting the sanitizer pick the format so
// Markdown-bearing posts keep their literal angle brackets.
func cleanText(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s, sanitizer.FormatAuto))
}

// cleanMarkdown sanitizes Markdown text.
func cleanMarkdown(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s, sanitizer.FormatMarkdown))
}

// truncateRunes cuts s to at most n runes and reports whether it did.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// hostOf returns the lowercased host of rawURL without "www." and port.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", scrape.ErrInvalidURL, rawURL)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), nil
}

// stripQuery drops the query string and fragment of rawURL and trailing
// slashes of its path.
func stripQuery(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}

// statusError is an HTTP failure reported by an SDK client.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.msg, e.status)
}

// Is matches ErrHTTPStatus, and ErrNotFound for 404.
func (e *statusError) Is(target error) bool {
	switch target {
	case scrape.ErrHTTPStatus:
		return true
	case scrape.ErrNotFound:
		return e.status == http.StatusNotFound
	}
	return false
}

// sdkError maps a failed SDK call to the pipeline errors. Transport
// failures already wrap a sentinel and are returned as is; HTTP statuses
// take the message listed for them, if any.
func sdkError(err error, resp *http.Response, messages map[int]string) error {
	if resp == nil || resp.StatusCode < 400 {
		return err
	}
	msg, ok := messages[resp.StatusCode]
	if !ok {
		msg = http.StatusText(resp.StatusCode)
	}
	return &statusError{status: resp.StatusCode, msg: msg}
}

// transient reports whether err may succeed on a later call.
func transient(err error) bool {
	return errors.Is(err, scrape.ErrTimeout) || errors.Is(err, scrape.ErrNetwork) ||
		fetcher.StatusOf(err) == http.StatusTooManyRequests || fetcher.StatusOf(err) >= 500
}
