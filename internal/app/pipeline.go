// Package app assembles the content pipeline from environment
// configuration. The API server and the CLI share it.
package app

import (
	"fmt"
	"log/slog"

	"webintel/internal/infra/cache"
	"webintel/internal/infra/fetcher"
	"webintel/internal/infra/redirect"
	"webintel/internal/infra/scraper"
	scrapeUC "webintel/internal/usecase/scrape"
	envcfg "webintel/pkg/config"
)

// Pipeline holds the long-lived components shared by every scrape.
type Pipeline struct {
	Fetcher  *fetcher.Fetcher
	Cache    *cache.FileCache
	Resolver *redirect.Resolver
	Service  *scrapeUC.Service
}

// Build loads the fetcher, cache, strategy and dispatcher settings from the
// environment and wires the components together. SCRAPE_CONCURRENCY bounds
// batch fan-out.
func Build(logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	f := fetcher.New(fetchCfg, fetcher.WithLogger(logger.With(slog.String("component", "fetcher"))))

	redirectCfg := redirect.DefaultConfig()
	redirectCfg.MaxRedirects = fetchCfg.MaxRedirects
	resolver := redirect.New(f, redirectCfg, logger.With(slog.String("component", "redirect")))

	cacheCfg, err := cache.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	store := cache.New(cacheCfg, cache.WithLogger(logger.With(slog.String("component", "cache"))))

	scraperCfg, err := scraper.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	strategies, err := scraper.NewFactory(f, resolver, scraperCfg, logger).Strategies()
	if err != nil {
		return nil, fmt.Errorf("strategies: %w", err)
	}

	svcCfg := scrapeUC.DefaultConfig()
	svcCfg.Concurrency = envcfg.GetEnvInt("SCRAPE_CONCURRENCY", svcCfg.Concurrency)
	if svcCfg.Concurrency < 1 {
		svcCfg.Concurrency = 1
	}
	svc := scrapeUC.NewService(strategies, store, resolver, svcCfg, logger.With(slog.String("component", "dispatcher")))

	logger.Debug("pipeline assembled",
		slog.Int("strategies", len(strategies)),
		slog.Bool("cache_enabled", cacheCfg.Enabled),
		slog.String("cache_dir", cacheCfg.Dir),
		slog.Bool("deny_private_ips", fetchCfg.DenyPrivateIPs),
		slog.Int("concurrency", svcCfg.Concurrency))

	return &Pipeline{Fetcher: f, Cache: store, Resolver: resolver, Service: svc}, nil
}
