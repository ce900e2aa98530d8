package scraper

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

const (
	feedDigestMaxItems   = 20
	feedItemSummaryChars = 500
)

// isFeed reports whether a response is an RSS, Atom or JSON feed rather
// than a page. HTML responses never are.
func isFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "html") {
		return false
	}
	return gofeed.DetectFeedType(bytes.NewReader(body)) != gofeed.FeedTypeUnknown
}

// feedContent parses a feed document and renders its most recent items as
// a Markdown digest.
func feedContent(body []byte, feedURL string) (*entity.Content, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", scrape.ErrMalformedResponse, err)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("%w: feed has no items", scrape.ErrExtraction)
	}

	items := feed.Items
	if len(items) > feedDigestMaxItems {
		items = items[:feedDigestMaxItems]
	}

	title := cleanText(feed.Title)
	description := cleanText(feed.Description)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", orDefault(title, "Feed"))
	if description != "" {
		fmt.Fprintf(&b, "\n%s\n", description)
	}
	fmt.Fprintf(&b, "\n## Latest items (%d of %d)\n", len(items), len(feed.Items))

	for _, item := range items {
		itemTitle := orDefault(cleanText(item.Title), "Untitled")
		if item.Link != "" {
			fmt.Fprintf(&b, "\n### [%s](%s)\n", itemTitle, item.Link)
		} else {
			fmt.Fprintf(&b, "\n### %s\n", itemTitle)
		}
		if ts := itemTime(item); ts != "" {
			fmt.Fprintf(&b, "*%s*\n", ts)
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		if summary = collapseSpace(stripTags(cleanText(summary))); summary != "" {
			if cut, truncated := truncateRunes(summary, feedItemSummaryChars); truncated {
				summary = cut + "..."
			}
			fmt.Fprintf(&b, "\n%s\n", summary)
		}
	}

	link := feed.Link
	if link == "" {
		link = feedURL
	}
	author := ""
	if feed.Author != nil {
		author = feed.Author.Name
	}
	created := ""
	switch {
	case feed.UpdatedParsed != nil:
		created = feed.UpdatedParsed.UTC().Format(time.RFC3339)
	case feed.PublishedParsed != nil:
		created = feed.PublishedParsed.UTC().Format(time.RFC3339)
	}

	return &entity.Content{
		Type:        "feed",
		URL:         link,
		Title:       title,
		Author:      cleanText(author),
		CreatedAt:   created,
		Description: description,
		SiteName:    title,
		Text:        cleanMarkdown(b.String()),
		FeedItems:   len(feed.Items),
	}, nil
}

func itemTime(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format("2006-01-02")
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format("2006-01-02")
	}
	return ""
}

// stripTags reduces sanitized HTML to its text.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
