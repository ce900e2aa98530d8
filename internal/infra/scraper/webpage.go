package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	readability "github.com/go-shiori/go-readability"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

const pageAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// pageMeta is the metadata read from a page head.
type pageMeta struct {
	Title       string
	Description string
	SiteName    string
	Image       string
	Author      string
	Published   string
}

// WebpageStrategy extracts the main article of an arbitrary page. Feed
// documents are rendered as a digest of their latest items.
type WebpageStrategy struct {
	api    apiClient
	cfg    Config
	logger *slog.Logger
}

// NewWebpageStrategy creates the generic webpage strategy.
func NewWebpageStrategy(f HTTPFetcher, cfg Config, logger *slog.Logger) *WebpageStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebpageStrategy{
		api:    apiClient{f: f, platform: "webpage"},
		cfg:    cfg,
		logger: logger,
	}
}

// ContentType implements scrape.Strategy.
func (s *WebpageStrategy) ContentType() entity.ContentType {
	return entity.ContentTypeWebpage
}

// Fetch implements scrape.Strategy.
func (s *WebpageStrategy) Fetch(ctx context.Context, rawURL string) (*scrape.Outcome, error) {
	resp, err := s.api.get(ctx, rawURL, http.Header{
		"Accept":          {pageAccept},
		"Accept-Language": {"en-US,en;q=0.5"},
	})
	if err != nil {
		return nil, statusMessage(err, map[int]string{
			http.StatusNotFound: "Page not found",
		})
	}

	pageURL := resp.FinalURL
	if pageURL == "" {
		pageURL = rawURL
	}

	if isFeed(resp.Header.Get("Content-Type"), resp.Body) {
		s.logger.Debug("feed document detected", slog.String("url", pageURL))
		c, err := feedContent(resp.Body, pageURL)
		if err != nil {
			return nil, err
		}
		return &scrape.Outcome{Content: c}, nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scrape.ErrInvalidURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(resp.Body), base)
	if err != nil {
		return nil, fmt.Errorf("%w: Could not extract meaningful content from page: %v", scrape.ErrExtraction, err)
	}

	plain := collapseSpace(cleanText(article.TextContent))
	textLength := utf8.RuneCountInString(plain)
	if textLength < s.cfg.MinContentChars {
		return nil, fmt.Errorf("%w: Could not extract meaningful content from page", scrape.ErrExtraction)
	}

	text, err := htmlToMarkdown(article.Content)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Debug("markdown conversion failed, using plain text",
			slog.String("url", pageURL),
			slog.Any("error", err))
		text = plain
	}

	meta := readMeta(resp.Body, base)
	published := meta.Published
	if article.PublishedTime != nil {
		published = article.PublishedTime.UTC().Format(time.RFC3339)
	}

	c := &entity.Content{
		Type:        "webpage",
		URL:         pageURL,
		Text:        cleanMarkdown(text),
		Title:       cleanText(firstNonEmpty(meta.Title, article.Title)),
		Author:      cleanText(firstNonEmpty(article.Byline, meta.Author)),
		CreatedAt:   published,
		Description: cleanText(firstNonEmpty(meta.Description, article.Excerpt)),
		SiteName:    cleanText(firstNonEmpty(meta.SiteName, article.SiteName)),
		Image:       firstNonEmpty(meta.Image, article.Image),
		TextLength:  textLength,
	}
	return &scrape.Outcome{Content: c}, nil
}

// readMeta reads OpenGraph properties, falling back to standard meta tags
// and the document title for anything OpenGraph leaves empty.
func readMeta(body []byte, base *url.URL) pageMeta {
	var meta pageMeta

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err == nil {
		meta.Title = og.Title
		meta.Description = og.Description
		meta.SiteName = og.SiteName
		if len(og.Images) > 0 {
			meta.Image = og.Images[0].URL
		}
		if og.Article != nil && og.Article.PublishedTime != nil {
			meta.Published = og.Article.PublishedTime.UTC().Format(time.RFC3339)
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		attr := func(selector string) string {
			v, _ := doc.Find(selector).First().Attr("content")
			return strings.TrimSpace(v)
		}
		if meta.Title == "" {
			meta.Title = firstNonEmpty(attr(`meta[name="twitter:title"]`), strings.TrimSpace(doc.Find("title").First().Text()))
		}
		if meta.Description == "" {
			meta.Description = firstNonEmpty(attr(`meta[name="description"]`), attr(`meta[name="twitter:description"]`))
		}
		meta.Author = firstNonEmpty(attr(`meta[name="author"]`), attr(`meta[property="article:author"]`))
		if meta.Published == "" {
			meta.Published = firstNonEmpty(
				attr(`meta[property="article:published_time"]`),
				attr(`meta[name="date"]`),
				strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", "")),
			)
		}
	}

	if meta.Image != "" && base != nil {
		if ref, err := url.Parse(meta.Image); err == nil {
			meta.Image = base.ResolveReference(ref).String()
		}
	}
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
