package scraper_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webintel/internal/infra/fetcher/fetchertest"
	"webintel/internal/infra/scraper"
	"webintel/internal/usecase/scrape"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Article 1</title>
      <link>https://example.com/article1</link>
      <description><![CDATA[<p>Hello <b>world</b></p><script>alert(1)</script>]]></description>
      <pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Article 2</title>
      <link>https://example.com/article2</link>
      <description>Description 2</description>
      <pubDate>Tue, 02 Jan 2024 00:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <link href="https://blog.example.com/"/>
  <updated>2024-03-01T10:00:00Z</updated>
  <author><name>Ann Author</name></author>
  <id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
  <entry>
    <title>First entry</title>
    <link href="https://blog.example.com/first"/>
    <id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
    <updated>2024-03-01T10:00:00Z</updated>
    <summary>Entry summary</summary>
  </entry>
</feed>`

func serveBody(t *testing.T, contentType, body string) *scraper.WebpageStrategy {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	f, _ := fetchertest.New(srv)
	return scraper.NewWebpageStrategy(f, scraper.DefaultConfig(), nil)
}

func TestWebpageStrategy_RSSFeedDigest(t *testing.T) {
	s := serveBody(t, "application/rss+xml", rssFeed)

	out, err := s.Fetch(context.Background(), "https://example.com/feed.xml")
	require.NoError(t, err)

	c := out.Content
	assert.Equal(t, "feed", c.Type)
	assert.Equal(t, "https://example.com", c.URL)
	assert.Equal(t, "Test Feed", c.Title)
	assert.Equal(t, "Test Feed", c.SiteName)
	assert.Equal(t, "Test Description", c.Description)
	assert.Equal(t, 2, c.FeedItems)

	assert.True(t, strings.HasPrefix(c.Text, "# Test Feed"))
	assert.Contains(t, c.Text, "## Latest items (2 of 2)")
	assert.Contains(t, c.Text, "### [Article 1](https://example.com/article1)")
	assert.Contains(t, c.Text, "*2024-01-01*")
	assert.Contains(t, c.Text, "world")
	assert.Contains(t, c.Text, "Description 2")
	assert.NotContains(t, c.Text, "alert")
	assert.NotContains(t, c.Text, "<p>")
}

func TestWebpageStrategy_AtomFeedServedAsXML(t *testing.T) {
	s := serveBody(t, "application/xml", atomFeed)

	out, err := s.Fetch(context.Background(), "https://blog.example.com/atom")
	require.NoError(t, err)

	c := out.Content
	assert.Equal(t, "feed", c.Type)
	assert.Equal(t, "Atom Blog", c.Title)
	assert.Equal(t, "Ann Author", c.Author)
	assert.Equal(t, "2024-03-01T10:00:00Z", c.CreatedAt)
	assert.Equal(t, 1, c.FeedItems)
	assert.Contains(t, c.Text, "### [First entry](https://blog.example.com/first)")
	assert.Contains(t, c.Text, "Entry summary")
}

func TestWebpageStrategy_FeedDigestIsCapped(t *testing.T) {
	var items strings.Builder
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&items, "<item><title>Item %d</title><link>https://example.com/%d</link></item>", i, i)
	}
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Busy</title><link>https://example.com</link>` +
		items.String() + `</channel></rss>`

	s := serveBody(t, "application/rss+xml", feed)
	out, err := s.Fetch(context.Background(), "https://example.com/rss")
	require.NoError(t, err)

	assert.Equal(t, 25, out.Content.FeedItems)
	assert.Contains(t, out.Content.Text, "## Latest items (20 of 25)")
	assert.Contains(t, out.Content.Text, "[Item 20]")
	assert.NotContains(t, out.Content.Text, "[Item 21]")
}

func TestWebpageStrategy_EmptyFeed(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Quiet</title></channel></rss>`
	s := serveBody(t, "application/rss+xml", feed)

	_, err := s.Fetch(context.Background(), "https://example.com/rss")
	assert.ErrorIs(t, err, scrape.ErrExtraction)
}
