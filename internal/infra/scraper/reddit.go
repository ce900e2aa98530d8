package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"webintel/internal/domain/entity"
	"webintel/internal/infra/fetcher"
	"webintel/internal/usecase/scrape"
)

const (
	shareLinkMaxRedirects = 5
	shareLinkTimeout      = 10 * time.Second
)

var (
	redditPostIDPattern    = regexp.MustCompile(`/comments/([a-zA-Z0-9]+)`)
	redditCommentIDPattern = regexp.MustCompile(`/comments/[a-zA-Z0-9]+/[^/]+/([a-zA-Z0-9]+)`)
	redditShortPattern     = regexp.MustCompile(`redd\.it/([a-zA-Z0-9]+)`)
	redditSharePattern     = regexp.MustCompile(`/r/[^/]+/s/[a-zA-Z0-9]+$`)
	redditHostPrefix       = regexp.MustCompile(`^(https?://)(?:www\.|old\.|np\.|new\.)?reddit\.com`)
)

// RedirectFollower follows a redirect chain without reading bodies.
type RedirectFollower interface {
	Head(ctx context.Context, rawURL string, maxRedirects int, timeout time.Duration) (*fetcher.HeadResult, error)
}

// NewRedditClient builds a read-only Reddit client on rt.
func NewRedditClient(rt http.RoundTripper, userAgent string) (*reddit.Client, error) {
	return reddit.NewReadonlyClient(
		reddit.WithHTTPClient(&http.Client{Transport: rt}),
		reddit.WithUserAgent(userAgent),
	)
}

// RedditStrategy extracts a post and a bounded tree of its comments.
type RedditStrategy struct {
	client *reddit.Client
	head   RedirectFollower
	cfg    Config
	logger *slog.Logger
}

// NewRedditStrategy creates the Reddit strategy. head resolves share links
// and may be nil.
func NewRedditStrategy(client *reddit.Client, head RedirectFollower, cfg Config, logger *slog.Logger) *RedditStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedditStrategy{client: client, head: head, cfg: cfg, logger: logger}
}

// ContentType implements scrape.Strategy.
func (s *RedditStrategy) ContentType() entity.ContentType {
	return entity.ContentTypeReddit
}

// Fetch implements scrape.Strategy.
func (s *RedditStrategy) Fetch(ctx context.Context, rawURL string) (*scrape.Outcome, error) {
	normalized := normalizeRedditURL(rawURL)
	postID := firstMatch(redditPostIDPattern, normalized)
	commentID := firstMatch(redditCommentIDPattern, stripQuery(rawURL))

	if postID == "" && redditSharePattern.MatchString(normalized) {
		if resolved := s.resolveShareLink(ctx, rawURL); resolved != "" {
			normalized = normalizeRedditURL(resolved)
			postID = firstMatch(redditPostIDPattern, normalized)
			commentID = firstMatch(redditCommentIDPattern, stripQuery(resolved))
		}
	}
	if postID == "" {
		return nil, fmt.Errorf("%w: Could not extract post ID from URL", scrape.ErrInvalidURL)
	}

	pc, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	p := pc.Post

	comments := make([]*entity.Comment, 0, s.cfg.Reddit.MaxComments)
	for _, c := range pc.Comments {
		if len(comments) >= s.cfg.Reddit.MaxComments {
			break
		}
		comments = append(comments, s.comment(c, 0))
	}

	contentType := "reddit_post"
	if commentID != "" {
		contentType = "reddit_comment"
	}

	c := &entity.Content{
		Type:        contentType,
		URL:         permalink(p.Permalink),
		Title:       cleanText(p.Title),
		Author:      "u/" + orDefault(p.Author, "[deleted]"),
		CreatedAt:   redditTime(p.Created),
		PostID:      postID,
		CommentID:   commentID,
		Subreddit:   "r/" + p.SubredditName,
		Selftext:    cleanText(p.Body),
		Score:       p.Score,
		UpvoteRatio: math.Round(float64(p.UpvoteRatio)*100) / 100,
		NumComments: p.NumberOfComments,
		IsSelf:      p.IsSelfPost,
		Comments:    comments,
	}
	if !p.IsSelfPost {
		c.ExternalURL = p.URL
	}
	c.Text = cleanText(postSummary(c))

	return &scrape.Outcome{Content: c, TTLClass: entity.TTLMetadata}, nil
}

// post fetches the post with its comments. The client panics on a listing
// without a post; that is reported as a malformed response.
func (s *RedditStrategy) post(ctx context.Context, id string) (pc *reddit.PostAndComments, err error) {
	defer func() {
		if r := recover(); r != nil {
			pc = nil
			err = fmt.Errorf("%w: No post data found", scrape.ErrMalformedResponse)
		}
	}()

	pc, resp, err := s.client.Post.Get(ctx, id)
	if err != nil {
		var hr *http.Response
		if resp != nil {
			hr = resp.Response
		}
		if hr != nil && hr.StatusCode < 400 {
			return nil, fmt.Errorf("%w: %v", scrape.ErrMalformedResponse, err)
		}
		return nil, sdkError(err, hr, map[int]string{
			http.StatusNotFound:        "Post not found or deleted",
			http.StatusForbidden:       "Subreddit is private or quarantined",
			http.StatusTooManyRequests: "Rate limited by Reddit",
		})
	}
	if pc == nil || pc.Post == nil {
		return nil, fmt.Errorf("%w: No post data found", scrape.ErrMalformedResponse)
	}
	return pc, nil
}

// resolveShareLink follows a /r/{sub}/s/{code} link to the post it points
// at. It returns "" when the chain does not end on a post.
func (s *RedditStrategy) resolveShareLink(ctx context.Context, rawURL string) string {
	if s.head == nil {
		return ""
	}
	res, err := s.head.Head(ctx, rawURL, shareLinkMaxRedirects, shareLinkTimeout)
	if err != nil {
		s.logger.Warn("share link resolution failed", slog.String("url", rawURL), slog.Any("error", err))
		return ""
	}
	if !strings.Contains(res.FinalURL, "/comments/") {
		s.logger.Warn("share link did not resolve to a post",
			slog.String("url", rawURL),
			slog.String("final_url", res.FinalURL))
		return ""
	}
	s.logger.Debug("resolved share link", slog.String("url", rawURL), slog.String("final_url", res.FinalURL))
	return res.FinalURL
}

func (s *RedditStrategy) comment(c *reddit.Comment, depth int) *entity.Comment {
	out := &entity.Comment{
		ID:          c.ID,
		Author:      orDefault(c.Author, "[deleted]"),
		Body:        cleanText(c.Body),
		Score:       c.Score,
		CreatedAt:   redditTime(c.Created),
		IsSubmitter: c.IsSubmitter,
		Depth:       depth,
	}
	if depth >= s.cfg.Reddit.MaxDepth {
		return out
	}
	for _, r := range c.Replies.Comments {
		if len(out.Replies) >= s.cfg.Reddit.MaxReplies {
			break
		}
		out.Replies = append(out.Replies, s.comment(r, depth+1))
	}
	return out
}

// normalizeRedditURL maps reddit host aliases to reddit.com, expands
// redd.it short links and drops the query string.
func normalizeRedditURL(rawURL string) string {
	u := stripQuery(rawURL)
	if id := firstMatch(redditShortPattern, u); id != "" {
		return "https://reddit.com/comments/" + id
	}
	u = redditHostPrefix.ReplaceAllString(u, "https://reddit.com")
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func postSummary(c *entity.Content) string {
	ratio := int(math.Round(c.UpvoteRatio * 100))
	lines := []string{
		"# " + c.Title,
		"",
		"**Subreddit:** " + c.Subreddit,
		"**Author:** " + c.Author,
		fmt.Sprintf("**Score:** %d (%d%% upvoted)", c.Score, ratio),
		fmt.Sprintf("**Comments:** %d", c.NumComments),
		"**Date:** " + orDefault(datePart(c.CreatedAt), "Unknown"),
		"",
	}

	switch {
	case c.IsSelf && c.Selftext != "":
		lines = append(lines, "## Post Content", "", c.Selftext, "")
	case !c.IsSelf:
		lines = append(lines, "**Link:** "+c.ExternalURL, "")
	}

	if len(c.Comments) > 0 {
		lines = append(lines, fmt.Sprintf("## Top Comments (%d)", len(c.Comments)), "", formatComments(c.Comments, ""))
	}
	return strings.Join(lines, "\n")
}

// formatComments renders comments as quotes, replies indented two spaces
// per level.
func formatComments(comments []*entity.Comment, indent string) string {
	var lines []string
	for _, c := range comments {
		op := ""
		if c.IsSubmitter {
			op = " [OP]"
		}
		lines = append(lines, fmt.Sprintf("%s> **%s**%s (%d points)", indent, c.Author, op, c.Score))
		for _, line := range strings.Split(strings.TrimSpace(c.Body), "\n") {
			lines = append(lines, indent+"> "+line)
		}
		lines = append(lines, "")

		if len(c.Replies) > 0 {
			lines = append(lines, formatComments(c.Replies, indent+"  "))
		}
	}
	return strings.Join(lines, "\n")
}

func permalink(p string) string {
	if strings.HasPrefix(p, "/") {
		return "https://reddit.com" + p
	}
	return p
}

func redditTime(ts *reddit.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
