package scraper

import (
	"fmt"

	"webintel/pkg/config"
)

// RedditLimits bounds the extracted comment tree.
type RedditLimits struct {
	MaxComments int
	MaxDepth    int
	MaxReplies  int
}

// Config holds strategy settings.
type Config struct {
	// GitHubToken authenticates GitHub API calls when set.
	GitHubToken string

	// RedditUserAgent identifies the read-only Reddit client.
	RedditUserAgent string

	// YouTubeLanguages is the transcript language preference order.
	YouTubeLanguages []string

	Reddit RedditLimits

	// ThreadMaxDepth bounds the reply-chain walk used to rebuild threads.
	ThreadMaxDepth int

	// ReadmeMaxChars truncates repository READMEs.
	ReadmeMaxChars int

	// GistMaxChars caps the aggregated gist file contents.
	GistMaxChars int

	// MinContentChars is the shortest webpage extraction accepted.
	MinContentChars int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RedditUserAgent:  "Mozilla/5.0 (compatible; WebIntel/1.0)",
		YouTubeLanguages: []string{"en", "fr"},
		Reddit: RedditLimits{
			MaxComments: 15,
			MaxDepth:    2,
			MaxReplies:  3,
		},
		ThreadMaxDepth:  20,
		ReadmeMaxChars:  100_000,
		GistMaxChars:    200_000,
		MinContentChars: 50,
	}
}

// Validate checks that every bound is positive.
func (c Config) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"reddit max comments", c.Reddit.MaxComments},
		{"reddit max depth", c.Reddit.MaxDepth},
		{"reddit max replies", c.Reddit.MaxReplies},
		{"thread max depth", c.ThreadMaxDepth},
		{"readme max chars", c.ReadmeMaxChars},
		{"gist max chars", c.GistMaxChars},
		{"min content chars", c.MinContentChars},
	}
	for _, ch := range checks {
		if ch.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", ch.name, ch.value)
		}
	}
	return nil
}

// LoadConfigFromEnv reads strategy settings from the environment.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.GitHubToken = config.GetEnvString("GITHUB_TOKEN", cfg.GitHubToken)
	cfg.RedditUserAgent = config.GetEnvString("REDDIT_USER_AGENT", cfg.RedditUserAgent)
	cfg.YouTubeLanguages = config.GetEnvStringList("YOUTUBE_TRANSCRIPT_LANGUAGES", cfg.YouTubeLanguages)
	cfg.Reddit.MaxComments = config.GetEnvInt("REDDIT_MAX_COMMENTS", cfg.Reddit.MaxComments)
	cfg.Reddit.MaxDepth = config.GetEnvInt("REDDIT_MAX_DEPTH", cfg.Reddit.MaxDepth)
	cfg.Reddit.MaxReplies = config.GetEnvInt("REDDIT_MAX_REPLIES", cfg.Reddit.MaxReplies)
	cfg.ThreadMaxDepth = config.GetEnvInt("TWITTER_THREAD_MAX_DEPTH", cfg.ThreadMaxDepth)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("scraper configuration: %w", err)
	}
	return cfg, nil
}
