// Package scrape implements the content acquisition use case: it classifies
// a URL, resolves shorteners, consults the content cache, routes the request
// to a platform strategy and normalizes the outcome into a result envelope.
package scrape

import "errors"

// Sentinel errors for the acquisition pipeline.
// These errors allow callers to distinguish between different failure modes
// and are wrapped with %w by the infrastructure layer.
var (
	// ErrInvalidURL indicates the URL is malformed or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrSSRFBlocked indicates the URL (or an address it resolves to) points
	// at a private, reserved or explicitly blocked destination.
	ErrSSRFBlocked = errors.New("URL blocked by SSRF protection")

	// ErrTooManyRedirects indicates a redirect chain exceeded its bound.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates a connect or read timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrNetwork indicates a connection-level failure (refused, reset, DNS).
	ErrNetwork = errors.New("network error")

	// ErrHTTPStatus indicates the upstream answered with a non-success status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrNotFound indicates the upstream resource does not exist (HTTP 404).
	ErrNotFound = errors.New("resource not found")

	// ErrMalformedResponse indicates the upstream payload could not be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrExtraction indicates the upstream answered successfully but the
	// content was missing, too short or unusable.
	ErrExtraction = errors.New("content extraction failed")

	// ErrUnsupportedURL indicates no strategy handles the URL.
	ErrUnsupportedURL = errors.New("unsupported URL")
)
