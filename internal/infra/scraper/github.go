package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

const (
	readmeExcerptChars = 3000
	readmeTruncated    = "\n\n[README truncated due to size limit]"
)

var (
	githubOwnerPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?$`)
	githubRepoPattern  = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// NewGitHubClient builds a GitHub API client on rt. token is optional.
func NewGitHubClient(rt http.RoundTripper, token string) *github.Client {
	client := github.NewClient(&http.Client{Transport: rt})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// GitHubStrategy extracts repository metadata and README content.
type GitHubStrategy struct {
	client *github.Client
	cfg    Config
	logger *slog.Logger
}

// NewGitHubStrategy creates the GitHub repository strategy.
func NewGitHubStrategy(client *github.Client, cfg Config, logger *slog.Logger) *GitHubStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubStrategy{client: client, cfg: cfg, logger: logger}
}

// ContentType implements scrape.Strategy.
func (s *GitHubStrategy) ContentType() entity.ContentType {
	return entity.ContentTypeGitHub
}

// Fetch implements scrape.Strategy.
func (s *GitHubStrategy) Fetch(ctx context.Context, rawURL string) (*scrape.Outcome, error) {
	owner, name, err := parseRepo(rawURL)
	if err != nil {
		return nil, err
	}

	repo, resp, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, sdkError(err, responseOf(resp), map[int]string{
			http.StatusNotFound:  "Repository not found",
			http.StatusForbidden: "GitHub API rate limit exceeded or access denied",
		})
	}

	readme, truncated := s.readme(ctx, owner, name)

	c := &entity.Content{
		Type:            "github",
		URL:             repo.GetHTMLURL(),
		Title:           owner + "/" + repo.GetName(),
		Author:          owner,
		Owner:           owner,
		Repo:            repo.GetName(),
		Description:     cleanText(repo.GetDescription()),
		Stars:           repo.GetStargazersCount(),
		Forks:           repo.GetForksCount(),
		OpenIssues:      repo.GetOpenIssuesCount(),
		Language:        repo.GetLanguage(),
		License:         repo.GetLicense().GetName(),
		Topics:          repo.Topics,
		Homepage:        repo.GetHomepage(),
		IsArchived:      repo.GetArchived(),
		IsFork:          repo.GetFork(),
		DefaultBranch:   repo.GetDefaultBranch(),
		CreatedAt:       timestamp(repo.GetCreatedAt()),
		UpdatedAt:       timestamp(repo.GetUpdatedAt()),
		PushedAt:        timestamp(repo.GetPushedAt()),
		Readme:          readme,
		ReadmeTruncated: truncated,
	}
	if c.URL == "" {
		c.URL = "https://github.com/" + owner + "/" + name
	}
	if c.Repo == "" {
		c.Repo = name
		c.Title = owner + "/" + name
	}
	c.Text = cleanMarkdown(repoSummary(c))

	return &scrape.Outcome{Content: c, TTLClass: entity.TTLMetadata}, nil
}

// readme returns the sanitized README, truncated to ReadmeMaxChars. A
// missing or unreadable README yields an empty string.
func (s *GitHubStrategy) readme(ctx context.Context, owner, name string) (string, bool) {
	content, _, err := s.client.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		s.logger.Debug("readme unavailable",
			slog.String("repo", owner+"/"+name),
			slog.Any("error", err))
		return "", false
	}
	text, err := content.GetContent()
	if err != nil {
		s.logger.Warn("readme decode failed",
			slog.String("repo", owner+"/"+name),
			slog.Any("error", err))
		return "", false
	}

	text, truncated := truncateRunes(text, s.cfg.ReadmeMaxChars)
	if truncated {
		text += readmeTruncated
	}
	return cleanMarkdown(text), truncated
}

// parseRepo extracts owner and repository name from a github.com URL or an
// "owner/repo" reference.
func parseRepo(rawURL string) (string, string, error) {
	invalid := fmt.Errorf("%w: Could not extract owner/repo from URL", scrape.ErrInvalidURL)

	ref := stripQuery(rawURL)
	if strings.Contains(ref, "://") {
		host, err := hostOf(ref)
		if err != nil {
			return "", "", err
		}
		if host != "github.com" {
			return "", "", fmt.Errorf("%w: Only github.com URLs are supported, got: %s", scrape.ErrInvalidURL, host)
		}
		u, err := url.Parse(ref)
		if err != nil {
			return "", "", invalid
		}
		ref = strings.TrimPrefix(u.Path, "/")
	}

	parts := strings.Split(ref, "/")
	if len(parts) < 2 {
		return "", "", invalid
	}
	owner := parts[0]
	name := strings.TrimSuffix(parts[1], ".git")

	if !githubOwnerPattern.MatchString(owner) || !githubRepoPattern.MatchString(name) || len(name) > 100 {
		return "", "", invalid
	}
	return owner, name, nil
}

// repoSummary renders the repository as readable Markdown with a README
// excerpt.
func repoSummary(c *entity.Content) string {
	lines := []string{
		"# " + c.Owner + "/" + c.Repo,
		"",
		"**URL:** " + c.URL,
		"**Description:** " + orDefault(c.Description, "No description"),
		"**Language:** " + orDefault(c.Language, "Unknown"),
		fmt.Sprintf("**Stars:** %d | **Forks:** %d", c.Stars, c.Forks),
	}
	if c.License != "" {
		lines = append(lines, "**License:** "+c.License)
	}
	if len(c.Topics) > 0 {
		lines = append(lines, "**Topics:** "+strings.Join(c.Topics, ", "))
	}
	if c.Homepage != "" {
		lines = append(lines, "**Homepage:** "+c.Homepage)
	}
	if c.IsArchived {
		lines = append(lines, "**Status:** Archived")
	}
	if c.IsFork {
		lines = append(lines, "**Note:** This is a fork")
	}
	lines = append(lines, "**Last updated:** "+orDefault(datePart(c.PushedAt), "Unknown"))

	if c.Readme != "" {
		excerpt, cut := truncateRunes(c.Readme, readmeExcerptChars)
		if cut {
			excerpt += "..."
		}
		lines = append(lines, "", "## README (excerpt)", "", excerpt)
	}
	return strings.Join(lines, "\n")
}

func responseOf(resp *github.Response) *http.Response {
	if resp == nil {
		return nil
	}
	return resp.Response
}

func timestamp(ts github.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func datePart(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
