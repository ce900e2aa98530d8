package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"webintel/internal/domain/entity"
	"webintel/internal/observability/metrics"
	"webintel/internal/observability/tracing"
)

const unsupportedMessage = "Unsupported URL type. Supported: Twitter/X, GitHub, YouTube, Reddit, or any webpage"

// Config holds dispatcher settings.
type Config struct {
	// MaxRedirectDepth bounds how many strategy calls one request may chain
	// through redirect markers.
	MaxRedirectDepth int

	// Concurrency bounds ScrapeMany.
	Concurrency int
}

// DefaultConfig returns a depth of 3 and a batch concurrency of 5.
func DefaultConfig() Config {
	return Config{MaxRedirectDepth: 3, Concurrency: 5}
}

// Service is the dispatcher: it resolves shorteners, classifies the URL,
// consults the cache, runs the platform strategy and builds the envelope.
type Service struct {
	strategies map[entity.ContentType]Strategy
	cache      Cache
	resolver   URLResolver
	cfg        Config
	logger     *slog.Logger
}

// NewService creates a dispatcher.
//
// Parameters:
//   - strategies: one per content type; a later duplicate replaces an earlier one
//   - cache: may be nil to disable caching
//   - resolver: may be nil to skip shortener resolution
//   - cfg: zero fields take DefaultConfig values
//   - logger: nil uses slog.Default()
func NewService(strategies []Strategy, cache Cache, resolver URLResolver, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.MaxRedirectDepth <= 0 {
		cfg.MaxRedirectDepth = def.MaxRedirectDepth
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	byType := make(map[entity.ContentType]Strategy, len(strategies))
	for _, st := range strategies {
		byType[st.ContentType()] = st
	}

	return &Service{
		strategies: byType,
		cache:      cache,
		resolver:   resolver,
		cfg:        cfg,
		logger:     logger,
	}
}

// Scrape extracts content from rawURL. It never returns an error or
// panics: failures are reported in the envelope.
func (s *Service) Scrape(ctx context.Context, rawURL string) entity.Result {
	return s.ScrapeRequest(ctx, entity.FetchRequest{URL: rawURL}, Options{})
}

// ScrapeWithOptions is Scrape with per-call overrides.
func (s *Service) ScrapeWithOptions(ctx context.Context, rawURL string, opts Options) entity.Result {
	return s.ScrapeRequest(ctx, entity.FetchRequest{URL: rawURL}, opts)
}

// ScrapeRequest runs the full pipeline for req.
func (s *Service) ScrapeRequest(ctx context.Context, req entity.FetchRequest, opts Options) (result entity.Result) {
	start := time.Now()
	original := strings.TrimSpace(req.URL)
	if opts.PlatformHint == "" {
		opts.PlatformHint = req.PlatformHint
	}

	ctx, span := tracing.StartSpan(ctx, "scrape.Scrape",
		attribute.String("webintel.url", original),
		attribute.String("webintel.platform_hint", string(opts.PlatformHint)))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during scrape",
				slog.String("url", original),
				slog.Any("panic", r))
			result = failure(entity.ContentTypeUnknown, original, fmt.Errorf("internal error: %v", r))
		}

		var spanErr error
		if !result.Success {
			spanErr = errors.New(result.Error)
		}
		span.SetAttributes(
			attribute.String("webintel.content_type", string(result.ContentType)),
			attribute.Bool("webintel.from_cache", result.FromCache))
		tracing.EndSpan(span, spanErr)
		metrics.RecordScrape(string(result.ContentType), result.Success, result.FromCache, time.Since(start))
	}()

	req.URL = original
	if err := req.Validate(); err != nil {
		return failure(entity.ContentTypeUnknown, original, fmt.Errorf("%w: %v", ErrInvalidURL, err))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	ctx = WithOptions(ctx, opts)

	return s.scrape(ctx, original, opts)
}

func (s *Service) scrape(ctx context.Context, original string, opts Options) entity.Result {
	resolved := original
	if s.resolver != nil {
		r, err := s.resolver.ResolveURL(ctx, original)
		if err != nil {
			return failure(entity.ContentTypeUnknown, original, fmt.Errorf("Failed to resolve shortened URL: %w", err))
		}
		resolved = r
	}

	ct := opts.PlatformHint
	if ct == "" {
		ct = Classify(resolved)
	}
	if ct == entity.ContentTypeUnknown {
		res := entity.Failure(entity.ContentTypeUnknown, original, unsupportedMessage)
		res.Err = ErrUnsupportedURL
		res.ResolvedURL = differs(resolved, original)
		return res
	}

	useCache := s.cache != nil && !opts.NoCache
	if useCache {
		if cached, ok := s.cache.Get(original); ok {
			out := *cached
			out.FromCache = true
			return out
		}
	}

	r, err := s.route(ctx, ct, resolved, 0)
	if err != nil {
		res := failure(ct, original, err)
		res.ResolvedURL = differs(resolved, original)
		return res
	}

	result := entity.Result{
		Success:     true,
		ContentType: r.contentType,
		URL:         original,
		ResolvedURL: differs(r.finalURL, original),
		Data:        r.content,
	}

	if useCache && r.cacheable {
		s.cache.Set(original, result, r.ttlClass, string(r.contentType))
	}
	return result
}

type routed struct {
	content     *entity.Content
	contentType entity.ContentType
	finalURL    string
	ttlClass    entity.TTLClass
	cacheable   bool
}

// route runs the strategy for ct and follows redirect markers.
func (s *Service) route(ctx context.Context, ct entity.ContentType, target string, depth int) (*routed, error) {
	strategy, ok := s.strategies[ct]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, unsupportedMessage)
	}

	spanCtx, span := tracing.StartSpan(ctx, "scrape.strategy."+string(ct),
		attribute.String("webintel.url", target),
		attribute.Int("webintel.depth", depth))
	out, err := strategy.Fetch(spanCtx, target)
	tracing.EndSpan(span, err)
	if err != nil {
		s.logger.Warn("strategy failed",
			slog.String("content_type", string(ct)),
			slog.String("url", target),
			slog.Any("error", err))
		return nil, err
	}

	if out.RedirectTo != "" {
		if depth+1 >= s.cfg.MaxRedirectDepth {
			return nil, fmt.Errorf("%w: Too many redirects (max depth: %d)", ErrTooManyRedirects, s.cfg.MaxRedirectDepth)
		}

		next := out.RedirectTo
		if s.resolver != nil {
			next, err = s.resolver.ResolveURL(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("resolve redirect target: %w", err)
			}
		}

		nct := Classify(next)
		if nct == entity.ContentTypeUnknown {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, unsupportedMessage)
		}

		s.logger.Debug("following redirect marker",
			slog.String("from", target),
			slog.String("to", next),
			slog.String("content_type", string(nct)))

		r, err := s.route(ctx, nct, next, depth+1)
		if err != nil {
			return nil, err
		}
		r.cacheable = r.cacheable && !out.NoCache
		return r, nil
	}

	if out.Content == nil {
		return nil, fmt.Errorf("%w: %s strategy returned no content", ErrExtraction, ct)
	}

	ttl := out.TTLClass
	if ttl == "" {
		ttl = entity.TTLContent
	}
	return &routed{
		content:     out.Content,
		contentType: ct,
		finalURL:    target,
		ttlClass:    ttl,
		cacheable:   !out.NoCache,
	}, nil
}

// ScrapeMany scrapes urls concurrently, at most Config.Concurrency at a
// time. Results are in input order. Cancellation of ctx turns the
// remaining entries into failures.
func (s *Service) ScrapeMany(ctx context.Context, urls []string, opts Options) []entity.Result {
	results := make([]entity.Result, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = failure(entity.ContentTypeUnknown, u, err)
				return nil
			}
			results[i] = s.ScrapeRequest(gctx, entity.FetchRequest{URL: u}, opts)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// failure builds an envelope carrying err as its cause.
func failure(ct entity.ContentType, url string, err error) entity.Result {
	res := entity.Failure(ct, url, err.Error())
	res.Err = err
	return res
}

func differs(u, original string) string {
	if u == original {
		return ""
	}
	return u
}
