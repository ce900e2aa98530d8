// Package main provides a CLI that runs the acquisition pipeline for one or
// more URLs and prints the result envelopes.
// Usage: webintel-scrape [--no-cache] [--platform P] [--timeout D] [--output json|text] URL...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webintel/internal/app"
	"webintel/internal/domain/entity"
	"webintel/internal/observability/logging"
	"webintel/internal/pkg/config"
	scrapeUC "webintel/internal/usecase/scrape"
)

var platforms = map[string]entity.ContentType{
	"twitter": entity.ContentTypeTwitter,
	"github":  entity.ContentTypeGitHub,
	"gist":    entity.ContentTypeGist,
	"youtube": entity.ContentTypeYouTube,
	"reddit":  entity.ContentTypeReddit,
	"webpage": entity.ContentTypeWebpage,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("webintel-scrape", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		noCache  bool
		platform string
		timeout  time.Duration
		output   string
	)
	fs.BoolVar(&noCache, "no-cache", false, "Bypass the content cache")
	fs.StringVar(&platform, "platform", "", "Force a platform: twitter, github, gist, youtube, reddit or webpage")
	fs.DurationVar(&timeout, "timeout", 0, "Bound each URL (e.g. 30s); 0 uses the fetcher defaults")
	fs.StringVar(&output, "output", "json", "Output format: json or text")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	urls := fs.Args()
	if len(urls) == 0 {
		fmt.Fprintln(stderr, "Error: at least one URL is required")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Usage: webintel-scrape [--no-cache] [--platform P] [--timeout D] [--output json|text] URL...")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Examples:")
		fmt.Fprintln(stderr, "  webintel-scrape https://github.com/golang/go")
		fmt.Fprintln(stderr, "  webintel-scrape --no-cache --output text https://x.com/user/status/123")
		return 2
	}

	opts, err := buildOptions(noCache, platform, timeout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if output != "json" && output != "text" {
		fmt.Fprintf(stderr, "Error: unknown output format %q\n", output)
		return 2
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	if _, err := config.ApplyOverlay(); err != nil {
		logger.Error("failed to apply config overlay", slog.Any("error", err))
		return 1
	}

	p, err := app.Build(logger)
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []entity.Result
	if len(urls) == 1 {
		results = []entity.Result{p.Service.ScrapeWithOptions(ctx, urls[0], opts)}
	} else {
		results = p.Service.ScrapeMany(ctx, urls, opts)
	}

	if output == "text" {
		writeText(stdout, results)
	} else if err := writeJSON(stdout, results); err != nil {
		fmt.Fprintf(stderr, "Error: failed to encode JSON: %v\n", err)
		return 1
	}

	for _, r := range results {
		if !r.Success {
			return 1
		}
	}
	return 0
}

func buildOptions(noCache bool, platform string, timeout time.Duration) (scrapeUC.Options, error) {
	opts := scrapeUC.Options{NoCache: noCache}
	if platform != "" {
		ct, ok := platforms[platform]
		if !ok {
			return opts, fmt.Errorf("unknown platform %q", platform)
		}
		opts.PlatformHint = ct
	}
	if timeout < 0 {
		return opts, fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	opts.Timeout = timeout
	return opts, nil
}

// writeJSON prints one indented envelope per URL.
func writeJSON(w io.Writer, results []entity.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func writeText(w io.Writer, results []entity.Result) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s [%s]\n", r.URL, r.ContentType)
		if !r.Success {
			fmt.Fprintf(w, "   Error: %s\n", r.Error)
			continue
		}
		if r.ResolvedURL != "" && r.ResolvedURL != r.URL {
			fmt.Fprintf(w, "   Resolved: %s\n", r.ResolvedURL)
		}
		if r.FromCache {
			fmt.Fprintln(w, "   (cached)")
		}
		if d := r.Data; d != nil {
			if d.Title != "" {
				fmt.Fprintf(w, "   Title: %s\n", d.Title)
			}
			if d.Author != "" {
				fmt.Fprintf(w, "   Author: %s\n", d.Author)
			}
			if d.CreatedAt != "" {
				fmt.Fprintf(w, "   Created: %s\n", d.CreatedAt)
			}
			if d.Text != "" {
				fmt.Fprintf(w, "\n%s\n", d.Text)
			}
		}
	}
}
