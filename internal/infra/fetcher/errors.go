package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"webintel/internal/resilience/retry"
	"webintel/internal/usecase/scrape"
)

// FailureKind classifies a failed fetch.
type FailureKind string

const (
	KindSSRFBlocked   FailureKind = "ssrf_blocked"
	KindTimeout       FailureKind = "timeout"
	KindTooLarge      FailureKind = "too_large"
	KindHTTPError     FailureKind = "http_error"
	KindNetworkError  FailureKind = "network_error"
	KindRedirectLimit FailureKind = "redirect_limit"
)

// FetchError is the failure half of a fetch outcome.
//
// Err always wraps one of the scrape sentinels, so callers may use either
// errors.As on *FetchError or errors.Is on the sentinel.
type FetchError struct {
	Kind       FailureKind
	StatusCode int
	Header     http.Header
	Detail     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Kind, e.StatusCode, e.Detail)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying may succeed.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindNetworkError:
		return true
	case KindHTTPError:
		return e.StatusCode >= 500 ||
			e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode == http.StatusRequestTimeout
	default:
		return false
	}
}

// HTTPStatusCode exposes the upstream status for retry classification.
// Zero for non-HTTP failures.
func (e *FetchError) HTTPStatusCode() int {
	if e.Kind != KindHTTPError {
		return 0
	}
	return e.StatusCode
}

// RetryAfter returns the wait requested by a 429 or 503 response through
// its Retry-After header. Zero otherwise.
func (e *FetchError) RetryAfter() time.Duration {
	if e.Kind != KindHTTPError || e.Header == nil {
		return 0
	}
	if e.StatusCode != http.StatusTooManyRequests && e.StatusCode != http.StatusServiceUnavailable {
		return 0
	}
	return retry.ParseRetryAfter(e.Header.Get("Retry-After"), time.Now())
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind == KindHTTPError {
		return fe.StatusCode
	}
	return 0
}

func statusError(resp *http.Response) *FetchError {
	sentinel := scrape.ErrHTTPStatus
	if resp.StatusCode == http.StatusNotFound {
		sentinel = fmt.Errorf("%w: %w", scrape.ErrHTTPStatus, scrape.ErrNotFound)
	}
	return &FetchError{
		Kind:       KindHTTPError,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Detail:     http.StatusText(resp.StatusCode),
		Err:        sentinel,
	}
}
