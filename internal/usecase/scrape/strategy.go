package scrape

import (
	"context"
	"time"

	"webintel/internal/domain/entity"
	"webintel/internal/resilience/retry"
)

// Strategy extracts content for one platform.
//
// Implementations validate and normalize the URL into a platform
// identifier, call the platform's read API through the resilient fetcher
// and apply their own fallback chain. Errors wrap one of the sentinels in
// errors.go.
type Strategy interface {
	ContentType() entity.ContentType
	Fetch(ctx context.Context, url string) (*Outcome, error)
}

// Outcome is a successful strategy result.
//
// When RedirectTo is set, Content is ignored and the dispatcher routes
// RedirectTo instead; this is how a link-only post hands off to the page
// it links to.
type Outcome struct {
	Content    *entity.Content
	TTLClass   entity.TTLClass
	NoCache    bool
	RedirectTo string
}

// Cache is the content cache as seen by the dispatcher.
type Cache interface {
	Get(url string) (*entity.Result, bool)
	Set(url string, payload entity.Result, class entity.TTLClass, source string) bool
}

// URLResolver expands shortener URLs. Non-shortener URLs are returned
// unchanged. Errors wrap ErrSSRFBlocked when the destination is private.
type URLResolver interface {
	ResolveURL(ctx context.Context, rawURL string) (string, error)
}

// Options are per-call overrides. Zero fields keep the configured defaults.
type Options struct {
	// MaxContentSize caps every response body fetched for the call.
	MaxContentSize int64
	// Timeout bounds the whole call, retries included.
	Timeout time.Duration
	// Retry replaces the fetcher's retry policy.
	Retry *retry.Config
	// PlatformHint forces a strategy instead of classifying the URL.
	PlatformHint entity.ContentType
	// NoCache skips both cache lookup and store.
	NoCache bool
}

type optionsKey struct{}

// WithOptions attaches per-call overrides to ctx. The fetcher reads
// MaxContentSize and Retry from here when a request leaves them unset.
func WithOptions(ctx context.Context, opts Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

// OptionsFrom returns the overrides attached to ctx, if any.
func OptionsFrom(ctx context.Context) (Options, bool) {
	opts, ok := ctx.Value(optionsKey{}).(Options)
	return opts, ok
}
