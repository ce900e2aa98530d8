package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/go-github/v68/github"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

var gistIDPattern = regexp.MustCompile(`gist\.github\.com/(?:[^/]+/)?([a-f0-9]+)`)

// GistStrategy extracts gist files.
type GistStrategy struct {
	client *github.Client
	cfg    Config
	logger *slog.Logger
}

// NewGistStrategy creates the gist strategy.
func NewGistStrategy(client *github.Client, cfg Config, logger *slog.Logger) *GistStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &GistStrategy{client: client, cfg: cfg, logger: logger}
}

// ContentType implements scrape.Strategy.
func (s *GistStrategy) ContentType() entity.ContentType {
	return entity.ContentTypeGist
}

// Fetch implements scrape.Strategy.
func (s *GistStrategy) Fetch(ctx context.Context, rawURL string) (*scrape.Outcome, error) {
	id, err := parseGistID(rawURL)
	if err != nil {
		return nil, err
	}

	gist, resp, err := s.client.Gists.Get(ctx, id)
	if err != nil {
		return nil, sdkError(err, responseOf(resp), map[int]string{
			http.StatusNotFound:  "Gist not found",
			http.StatusForbidden: "GitHub API rate limit exceeded or access denied",
		})
	}

	names := make([]string, 0, len(gist.Files))
	for name := range gist.Files {
		names = append(names, string(name))
	}
	sort.Strings(names)

	files := make([]entity.GistFile, 0, len(names))
	var blocks []string
	total := 0
	for _, name := range names {
		f := gist.Files[github.GistFilename(name)]
		filename := f.GetFilename()
		if filename == "" {
			filename = name
		}
		file := entity.GistFile{
			Filename: filename,
			Language: f.GetLanguage(),
			Size:     f.GetSize(),
		}

		content := f.GetContent()
		n := utf8.RuneCountInString(content)
		if content != "" && total+n > s.cfg.GistMaxChars {
			s.logger.Info("gist file skipped, content cap reached",
				slog.String("gist_id", id),
				slog.String("file", filename))
			file.Omitted = true
		}
		files = append(files, file)
		if content == "" || file.Omitted {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### %s\n\n```%s\n%s\n```",
			filename, strings.ToLower(f.GetLanguage()), content))
		total += n
	}

	description := cleanText(gist.GetDescription())
	title := description
	switch {
	case title != "":
	case len(files) > 0:
		title = files[0].Filename
	default:
		title = "Gist " + id
	}

	gistURL := gist.GetHTMLURL()
	if gistURL == "" {
		gistURL = "https://gist.github.com/" + id
	}

	c := &entity.Content{
		Type:        "gist",
		URL:         gistURL,
		Title:       title,
		Author:      gist.GetOwner().GetLogin(),
		Owner:       gist.GetOwner().GetLogin(),
		Description: description,
		GistID:      id,
		Files:       files,
		CreatedAt:   timestamp(gist.GetCreatedAt()),
		UpdatedAt:   timestamp(gist.GetUpdatedAt()),
	}
	c.Text = cleanMarkdown(gistSummary(c, strings.Join(blocks, "\n\n")))

	return &scrape.Outcome{Content: c}, nil
}

// parseGistID extracts the hexadecimal gist id from a gist.github.com URL.
func parseGistID(rawURL string) (string, error) {
	ref := stripQuery(rawURL)
	if strings.Contains(ref, "://") {
		host, err := hostOf(ref)
		if err != nil {
			return "", err
		}
		if host != "gist.github.com" {
			return "", fmt.Errorf("%w: Only gist.github.com URLs are supported, got: %s", scrape.ErrInvalidURL, host)
		}
	}

	m := gistIDPattern.FindStringSubmatch(ref)
	if m == nil || len(m[1]) < 4 {
		return "", fmt.Errorf("%w: Could not extract gist ID from URL", scrape.ErrInvalidURL)
	}
	return m[1], nil
}

func gistSummary(c *entity.Content, content string) string {
	lines := []string{
		"# Gist: " + c.Title,
		"",
		"**URL:** " + c.URL,
		"**Author:** " + orDefault(c.Owner, "Unknown"),
	}
	if c.Description != "" {
		lines = append(lines, "**Description:** "+c.Description)
	}
	lines = append(lines, fmt.Sprintf("**Files:** %d", len(c.Files)))
	if len(c.Files) > 0 {
		names := make([]string, len(c.Files))
		for i, f := range c.Files {
			names[i] = f.Filename
		}
		lines = append(lines, "**File names:** "+strings.Join(names, ", "))
	}
	lines = append(lines, "**Last updated:** "+orDefault(datePart(c.UpdatedAt), "Unknown"))

	if content != "" {
		lines = append(lines, "", "## Content", "", content)
	}
	return strings.Join(lines, "\n")
}
