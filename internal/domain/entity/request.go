package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// FetchRequest is a single caller request. It is not modified once submitted.
type FetchRequest struct {
	URL string `json:"url"`
	// PlatformHint forces a strategy; empty means classify from the URL.
	PlatformHint ContentType `json:"platform_hint,omitempty"`
}

// Validate performs the cheap, network-free shape checks on a request.
// SSRF gating happens later, in the fetcher.
func (r FetchRequest) Validate() error {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(raw) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Message: "URL is malformed"}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	switch r.PlatformHint {
	case "", ContentTypeTwitter, ContentTypeGitHub, ContentTypeGist,
		ContentTypeYouTube, ContentTypeReddit, ContentTypeWebpage:
	default:
		return &ValidationError{Field: "platform_hint", Message: "invalid platform hint"}
	}

	return nil
}
