package scraper

import (
	"fmt"
	"log/slog"

	"webintel/internal/infra/fetcher"
	"webintel/internal/usecase/scrape"
)

// Factory builds every platform strategy on a shared fetcher.
type Factory struct {
	fetcher  *fetcher.Fetcher
	resolver scrape.URLResolver
	cfg      Config
	logger   *slog.Logger
}

// NewFactory creates a Factory. resolver is used by strategies that follow
// embedded links and may be nil.
func NewFactory(f *fetcher.Fetcher, resolver scrape.URLResolver, cfg Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{fetcher: f, resolver: resolver, cfg: cfg, logger: logger}
}

// Strategies returns one strategy per supported content type, the generic
// webpage strategy last.
func (f *Factory) Strategies() ([]scrape.Strategy, error) {
	if err := f.cfg.Validate(); err != nil {
		return nil, err
	}

	gh := NewGitHubClient(f.fetcher.Transport("github"), f.cfg.GitHubToken)
	rc, err := NewRedditClient(f.fetcher.Transport("reddit"), f.cfg.RedditUserAgent)
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}

	return []scrape.Strategy{
		NewTwitterStrategy(f.fetcher, f.resolver, f.cfg, f.logger.With(slog.String("strategy", "twitter"))),
		NewGitHubStrategy(gh, f.cfg, f.logger.With(slog.String("strategy", "github"))),
		NewGistStrategy(gh, f.cfg, f.logger.With(slog.String("strategy", "gist"))),
		NewYouTubeStrategy(f.fetcher, f.cfg, f.logger.With(slog.String("strategy", "youtube"))),
		NewRedditStrategy(rc, f.fetcher, f.cfg, f.logger.With(slog.String("strategy", "reddit"))),
		NewWebpageStrategy(f.fetcher, f.cfg, f.logger.With(slog.String("strategy", "webpage"))),
	}, nil
}
