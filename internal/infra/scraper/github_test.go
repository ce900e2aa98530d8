package scraper_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webintel/internal/domain/entity"
	"webintel/internal/infra/fetcher/fetchertest"
	"webintel/internal/infra/scraper"
	"webintel/internal/usecase/scrape"
)

func githubAPI(t *testing.T, routes map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGitHubStrategies(t *testing.T, routes map[string]any, cfg scraper.Config) (*scraper.GitHubStrategy, *scraper.GistStrategy, *fetchertest.Router) {
	t.Helper()
	srv := githubAPI(t, routes)
	f, router := fetchertest.New(srv)
	client := scraper.NewGitHubClient(f.Transport("github"), "")
	return scraper.NewGitHubStrategy(client, cfg, nil), scraper.NewGistStrategy(client, cfg, nil), router
}

func readme(text string) map[string]any {
	return map[string]any{
		"name":     "README.md",
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

func TestGitHubStrategy_Repository(t *testing.T) {
	routes := map[string]any{
		"/repos/golang/go": map[string]any{
			"name":              "go",
			"html_url":          "https://github.com/golang/go",
			"description":       "The Go programming language",
			"stargazers_count":  120000,
			"forks_count":       17000,
			"open_issues_count": 9000,
			"language":          "Go",
			"license":           map[string]any{"name": "BSD 3-Clause \"New\" or \"Revised\" License"},
			"topics":            []string{"go", "language"},
			"homepage":          "https://go.dev",
			"default_branch":    "master",
			"created_at":        "2014-08-19T04:33:40Z",
			"pushed_at":         "2024-06-01T12:00:00Z",
		},
		"/repos/golang/go/readme": readme("# The Go Programming Language\n\nGo is an open source language.<script>x()</script>"),
	}

	gh, _, router := newGitHubStrategies(t, routes, scraper.DefaultConfig())
	out, err := gh.Fetch(context.Background(), "https://www.github.com/golang/go.git?tab=readme")
	require.NoError(t, err)

	assert.Equal(t, entity.TTLMetadata, out.TTLClass)
	c := out.Content
	assert.Equal(t, "github", c.Type)
	assert.Equal(t, "golang/go", c.Title)
	assert.Equal(t, "golang", c.Owner)
	assert.Equal(t, "go", c.Repo)
	assert.Equal(t, 120000, c.Stars)
	assert.Equal(t, 17000, c.Forks)
	assert.Equal(t, 9000, c.OpenIssues)
	assert.Equal(t, []string{"go", "language"}, c.Topics)
	assert.Equal(t, "master", c.DefaultBranch)
	assert.Equal(t, "2014-08-19T04:33:40Z", c.CreatedAt)
	assert.False(t, c.ReadmeTruncated)
	assert.NotContains(t, c.Readme, "<script")

	assert.True(t, strings.HasPrefix(c.Text, "# golang/go\n\n**URL:** https://github.com/golang/go"))
	assert.Contains(t, c.Text, "**Stars:** 120000 | **Forks:** 17000")
	assert.Contains(t, c.Text, "**Topics:** go, language")
	assert.Contains(t, c.Text, "**Last updated:** 2024-06-01")
	assert.Contains(t, c.Text, "## README (excerpt)")

	for _, h := range router.Hosts() {
		assert.Equal(t, "api.github.com", h)
	}
}

func TestGitHubStrategy_ReadmeTruncated(t *testing.T) {
	cfg := scraper.DefaultConfig()
	cfg.ReadmeMaxChars = 10

	routes := map[string]any{
		"/repos/acme/tool":        map[string]any{"name": "tool"},
		"/repos/acme/tool/readme": readme(strings.Repeat("a", 50)),
	}

	gh, _, _ := newGitHubStrategies(t, routes, cfg)
	out, err := gh.Fetch(context.Background(), "https://github.com/acme/tool")
	require.NoError(t, err)

	assert.True(t, out.Content.ReadmeTruncated)
	assert.Equal(t, strings.Repeat("a", 10)+"\n\n[README truncated due to size limit]", out.Content.Readme)
}

func TestGitHubStrategy_MissingReadmeIsNotFatal(t *testing.T) {
	routes := map[string]any{
		"/repos/acme/tool": map[string]any{"name": "tool"},
	}

	gh, _, _ := newGitHubStrategies(t, routes, scraper.DefaultConfig())
	out, err := gh.Fetch(context.Background(), "https://github.com/acme/tool")
	require.NoError(t, err)

	assert.Empty(t, out.Content.Readme)
	assert.NotContains(t, out.Content.Text, "README")
	assert.Contains(t, out.Content.Text, "**Description:** No description")
}

func TestGitHubStrategy_Errors(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
		wantMsg string
	}{
		{"repository not found", "https://github.com/acme/missing", scrape.ErrNotFound, "Repository not found"},
		{"other host", "https://gitlab.com/acme/tool", scrape.ErrInvalidURL, "Only github.com URLs are supported, got: gitlab.com"},
		{"lookalike host", "https://github.com.evil.example/acme/tool", scrape.ErrInvalidURL, "Only github.com URLs"},
		{"owner only", "https://github.com/acme", scrape.ErrInvalidURL, "Could not extract owner/repo"},
		{"bad owner", "https://github.com/-acme-/tool", scrape.ErrInvalidURL, "Could not extract owner/repo"},
	}

	gh, _, _ := newGitHubStrategies(t, map[string]any{}, scraper.DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gh.Fetch(context.Background(), tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGistStrategy_Files(t *testing.T) {
	routes := map[string]any{
		"/gists/aa11bb22": map[string]any{
			"id":          "aa11bb22",
			"html_url":    "https://gist.github.com/jdoe/aa11bb22",
			"description": "",
			"owner":       map[string]any{"login": "jdoe"},
			"updated_at":  "2024-03-02T08:00:00Z",
			"files": map[string]any{
				"b.py":    map[string]any{"filename": "b.py", "language": "Python", "size": 12, "content": "print('hi')"},
				"a.go":    map[string]any{"filename": "a.go", "language": "Go", "size": 14, "content": "package main\n"},
				"huge.md": map[string]any{"filename": "huge.md", "language": "Markdown", "size": 40, "content": strings.Repeat("x", 40)},
			},
		},
	}

	cfg := scraper.DefaultConfig()
	cfg.GistMaxChars = 30

	_, gist, _ := newGitHubStrategies(t, routes, cfg)
	out, err := gist.Fetch(context.Background(), "https://gist.github.com/jdoe/aa11bb22#file-a-go")
	require.NoError(t, err)

	c := out.Content
	assert.Equal(t, "gist", c.Type)
	assert.Equal(t, "aa11bb22", c.GistID)
	assert.Equal(t, "a.go", c.Title, "first filename when the description is empty")
	assert.Equal(t, "jdoe", c.Author)
	require.Len(t, c.Files, 3)
	assert.Equal(t, []string{"a.go", "b.py", "huge.md"}, []string{c.Files[0].Filename, c.Files[1].Filename, c.Files[2].Filename})
	assert.True(t, c.Files[2].Omitted)

	assert.Contains(t, c.Text, "# Gist: a.go")
	assert.Contains(t, c.Text, "**File names:** a.go, b.py, huge.md")
	assert.Contains(t, c.Text, "### a.go\n\n```go\npackage main\n\n```")
	assert.Contains(t, c.Text, "### b.py\n\n```python\nprint('hi')\n```")
	assert.NotContains(t, c.Text, "### huge.md")
}

func TestGistStrategy_TitleFallsBackToID(t *testing.T) {
	routes := map[string]any{
		"/gists/cafe": map[string]any{"id": "cafe"},
	}

	_, gist, _ := newGitHubStrategies(t, routes, scraper.DefaultConfig())
	out, err := gist.Fetch(context.Background(), "https://gist.github.com/cafe")
	require.NoError(t, err)
	assert.Equal(t, "Gist cafe", out.Content.Title)
	assert.Equal(t, "https://gist.github.com/cafe", out.Content.URL)
}

func TestGistStrategy_Errors(t *testing.T) {
	_, gist, _ := newGitHubStrategies(t, map[string]any{}, scraper.DefaultConfig())

	_, err := gist.Fetch(context.Background(), "https://gist.github.com/jdoe/abc")
	assert.ErrorIs(t, err, scrape.ErrInvalidURL, "ids shorter than four characters are rejected")

	_, err = gist.Fetch(context.Background(), "https://github.com/jdoe/abcdef")
	assert.ErrorIs(t, err, scrape.ErrInvalidURL)

	_, err = gist.Fetch(context.Background(), "https://gist.github.com/jdoe/deadbeef")
	assert.ErrorIs(t, err, scrape.ErrNotFound)
	assert.Contains(t, err.Error(), "Gist not found")
}
