package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

const (
	syndicationURL = "https://cdn.syndication.twimg.com/tweet-result?id=%s&token=1"
	fxTwitterURL   = "https://api.fxtwitter.com/status/%s"

	// linkShareMaxChars is the most residual text a post may carry and
	// still count as a bare link share.
	linkShareMaxChars = 20
)

var (
	tweetIDPattern   = regexp.MustCompile(`/status(?:es)?/(\d+)`)
	articleIDPattern = regexp.MustCompile(`/i/article/(\d+)`)

	tcoPattern         = regexp.MustCompile(`https?://t\.co/\w+`)
	tagMentionPattern  = regexp.MustCompile(`[#@]\w+`)
	spaceEmojiPattern  = regexp.MustCompile(`[\s\x{200d}\x{fe0f}\x{2764}\x{1F300}-\x{1F9FF}]+`)
	punctuationPattern = regexp.MustCompile(`[.,!?:;\-–—…]+`)
)

// tweet is the platform-neutral view of one post.
type tweet struct {
	ID         string
	Text       string
	Author     string
	AuthorName string
	CreatedAt  string
	Likes      int
	Retweets   int
	Replies    int
	Media      []string
	IsNote     bool
	ReplyTo    string
}

type syndicationUser struct {
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

type syndicationTweet struct {
	IDStr             string          `json:"id_str"`
	Text              string          `json:"text"`
	CreatedAt         string          `json:"created_at"`
	FavoriteCount     int             `json:"favorite_count"`
	RetweetCount      int             `json:"retweet_count"`
	ConversationCount int             `json:"conversation_count"`
	User              syndicationUser `json:"user"`
	MediaDetails      []struct {
		MediaURLHTTPS string `json:"media_url_https"`
	} `json:"mediaDetails"`
	NoteTweet            json.RawMessage `json:"note_tweet"`
	InReplyToStatusIDStr string          `json:"in_reply_to_status_id_str"`
	InReplyToStatusID    json.Number     `json:"in_reply_to_status_id"`
	Parent               *struct {
		IDStr string `json:"id_str"`
	} `json:"parent"`
}

// replyTo returns the parent id from the first field that carries one.
func (s syndicationTweet) replyTo() string {
	switch {
	case s.InReplyToStatusIDStr != "":
		return s.InReplyToStatusIDStr
	case s.InReplyToStatusID != "":
		return s.InReplyToStatusID.String()
	case s.Parent != nil:
		return s.Parent.IDStr
	}
	return ""
}

type fxAuthor struct {
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

type fxTweet struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Author    fxAuthor `json:"author"`
	CreatedAt string   `json:"created_at"`
	Likes     int      `json:"likes"`
	Retweets  int      `json:"retweets"`
	Replies   int      `json:"replies"`
	Media     *struct {
		Photos []struct {
			URL string `json:"url"`
		} `json:"photos"`
	} `json:"media"`
	IsNoteTweet bool       `json:"is_note_tweet"`
	ReplyingTo  string     `json:"replying_to_status"`
	Thread      []fxTweet  `json:"thread"`
	Article     *fxArticle `json:"article"`
}

type fxResponse struct {
	Code  int      `json:"code"`
	Tweet *fxTweet `json:"tweet"`
}

func (t fxTweet) toTweet() tweet {
	out := tweet{
		ID:         t.ID,
		Text:       cleanText(t.Text),
		Author:     "@" + handleOr(t.Author.ScreenName),
		AuthorName: t.Author.Name,
		CreatedAt:  t.CreatedAt,
		Likes:      t.Likes,
		Retweets:   t.Retweets,
		Replies:    t.Replies,
		IsNote:     t.IsNoteTweet,
		ReplyTo:    t.ReplyingTo,
	}
	if t.Media != nil {
		for _, p := range t.Media.Photos {
			if p.URL != "" {
				out.Media = append(out.Media, p.URL)
			}
		}
	}
	return out
}

func handleOr(screenName string) string {
	if screenName == "" {
		return "unknown"
	}
	return screenName
}

// TwitterStrategy extracts posts, threads and articles from Twitter/X.
type TwitterStrategy struct {
	api      apiClient
	resolver scrape.URLResolver
	cfg      Config
	logger   *slog.Logger
}

// NewTwitterStrategy creates the Twitter/X strategy. resolver expands t.co
// links found in link-only posts.
func NewTwitterStrategy(f HTTPFetcher, resolver scrape.URLResolver, cfg Config, logger *slog.Logger) *TwitterStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwitterStrategy{
		api:      apiClient{f: f, platform: "twitter"},
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// ContentType implements scrape.Strategy.
func (s *TwitterStrategy) ContentType() entity.ContentType {
	return entity.ContentTypeTwitter
}

// Fetch implements scrape.Strategy.
func (s *TwitterStrategy) Fetch(ctx context.Context, rawURL string) (*scrape.Outcome, error) {
	clean := stripQuery(rawURL)

	if m := articleIDPattern.FindStringSubmatch(clean); m != nil {
		c, err := s.fetchArticle(ctx, m[1])
		if err != nil {
			return nil, err
		}
		return &scrape.Outcome{Content: c}, nil
	}

	m := tweetIDPattern.FindStringSubmatch(clean)
	if m == nil {
		return nil, fmt.Errorf("%w: could not extract tweet ID from URL", scrape.ErrInvalidURL)
	}
	id := m[1]

	tw, err := s.syndication(ctx, id)
	if err != nil {
		if errors.Is(err, scrape.ErrNotFound) {
			// Posts that only carry an X article are missing from syndication.
			if c, aerr := s.fetchArticle(ctx, id); aerr == nil {
				return &scrape.Outcome{Content: c}, nil
			}
		}
		return nil, err
	}

	if tw.IsNote {
		s.logger.Info("note post detected, fetching full text", slog.String("tweet_id", id))
		full, err := s.fxTwitter(ctx, id)
		if err != nil {
			s.logger.Warn("full text fallback failed, keeping truncated text",
				slog.String("tweet_id", id),
				slog.Any("error", err))
		} else {
			t := full.toTweet()
			t.IsNote = true
			if t.ReplyTo == "" {
				t.ReplyTo = tw.ReplyTo
			}
			tw = t
		}
	}

	if tw.ReplyTo != "" {
		if thread := s.selfThread(ctx, tw); len(thread) >= 2 {
			return &scrape.Outcome{Content: threadContent(id, thread)}, nil
		}
	}

	if link := linkOnly(tw.Text); link != "" {
		return s.followLink(ctx, tw, link)
	}

	return &scrape.Outcome{Content: tweetContent(tw)}, nil
}

// selfThread rebuilds the thread tw belongs to when its parent has the same
// author. It returns nil when tw is not part of a self-thread.
func (s *TwitterStrategy) selfThread(ctx context.Context, tw tweet) []tweet {
	parent, err := s.syndication(ctx, tw.ReplyTo)
	if err != nil {
		s.logger.Debug("parent post unavailable", slog.String("tweet_id", tw.ReplyTo), slog.Any("error", err))
		return nil
	}
	if !strings.EqualFold(parent.Author, tw.Author) {
		s.logger.Info("reply to a different author, not a thread",
			slog.String("tweet_id", tw.ID),
			slog.String("parent_author", parent.Author))
		return nil
	}

	s.logger.Info("self-thread detected, reconstructing",
		slog.String("tweet_id", tw.ID),
		slog.String("author", tw.Author))

	if fx, err := s.fxTwitter(ctx, tw.ID); err == nil && len(fx.Thread) >= 2 {
		thread := make([]tweet, 0, len(fx.Thread))
		for _, t := range fx.Thread {
			thread = append(thread, t.toTweet())
		}
		return thread
	}

	return s.walkReplies(ctx, tw.ID, tw.Author)
}

// walkReplies follows the reply chain upward from id, keeping posts by
// author. It stops at the first post by someone else, at a post that cannot
// be fetched, at a repeated id or after ThreadMaxDepth posts. The result is
// in chronological order.
func (s *TwitterStrategy) walkReplies(ctx context.Context, id, author string) []tweet {
	var chain []tweet
	seen := make(map[string]bool)

	for current := id; current != "" && len(chain) < s.cfg.ThreadMaxDepth; {
		if seen[current] {
			s.logger.Warn("thread loop detected", slog.String("tweet_id", current))
			break
		}
		seen[current] = true

		t, err := s.syndication(ctx, current)
		if err != nil {
			s.logger.Warn("thread walk stopped", slog.String("tweet_id", current), slog.Any("error", err))
			break
		}
		if !strings.EqualFold(t.Author, author) {
			break
		}
		chain = append(chain, t)
		current = t.ReplyTo
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// followLink handles a post whose text is essentially one t.co link.
func (s *TwitterStrategy) followLink(ctx context.Context, tw tweet, link string) (*scrape.Outcome, error) {
	if s.resolver == nil {
		return &scrape.Outcome{Content: tweetContent(tw), NoCache: true}, nil
	}

	resolved, err := s.resolver.ResolveURL(ctx, link)
	if err != nil || resolved == link {
		s.logger.Info("link-only post could not be resolved, result not cached",
			slog.String("tweet_id", tw.ID),
			slog.String("link", link),
			slog.Any("error", err))
		return &scrape.Outcome{Content: tweetContent(tw), NoCache: true}, nil
	}

	if !isTwitterURL(resolved) {
		return &scrape.Outcome{RedirectTo: resolved}, nil
	}

	if m := articleIDPattern.FindStringSubmatch(resolved); m != nil {
		c, err := s.fetchArticle(ctx, m[1])
		if err != nil {
			return nil, fmt.Errorf("article shared by post %s: %w", tw.ID, err)
		}
		return &scrape.Outcome{Content: c}, nil
	}

	return &scrape.Outcome{RedirectTo: resolved, NoCache: true}, nil
}

func (s *TwitterStrategy) syndication(ctx context.Context, id string) (tweet, error) {
	var raw syndicationTweet
	err := s.api.getJSON(ctx, fmt.Sprintf(syndicationURL, url.QueryEscape(id)), nil, &raw)
	if err != nil {
		return tweet{}, statusMessage(err, map[int]string{
			http.StatusNotFound: "Tweet not found or is an article",
		})
	}

	out := tweet{
		ID:         id,
		Text:       cleanText(raw.Text),
		Author:     "@" + handleOr(raw.User.ScreenName),
		AuthorName: raw.User.Name,
		CreatedAt:  raw.CreatedAt,
		Likes:      raw.FavoriteCount,
		Retweets:   raw.RetweetCount,
		Replies:    raw.ConversationCount,
		IsNote:     len(raw.NoteTweet) > 0 && string(raw.NoteTweet) != "null",
		ReplyTo:    raw.replyTo(),
	}
	for _, m := range raw.MediaDetails {
		if m.MediaURLHTTPS != "" {
			out.Media = append(out.Media, m.MediaURLHTTPS)
		}
	}
	return out, nil
}

func (s *TwitterStrategy) fxTwitter(ctx context.Context, id string) (*fxTweet, error) {
	var resp fxResponse
	err := s.api.getJSON(ctx, fmt.Sprintf(fxTwitterURL, url.PathEscape(id)), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fxtwitter: %w", err)
	}
	if resp.Tweet == nil {
		return nil, fmt.Errorf("%w: fxtwitter: no tweet data in response", scrape.ErrMalformedResponse)
	}
	return resp.Tweet, nil
}

// linkOnly returns the t.co link of text when the rest of the text is
// hashtags, mentions, emoji, punctuation and fewer than linkShareMaxChars
// other characters.
func linkOnly(text string) string {
	link := tcoPattern.FindString(text)
	if link == "" {
		return ""
	}
	rest := strings.TrimSpace(strings.ReplaceAll(text, link, ""))
	rest = tagMentionPattern.ReplaceAllString(rest, "")
	rest = spaceEmojiPattern.ReplaceAllString(rest, "")
	rest = punctuationPattern.ReplaceAllString(rest, "")
	if utf8.RuneCountInString(rest) < linkShareMaxChars {
		return link
	}
	return ""
}

func isTwitterURL(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	for _, d := range []string{"x.com", "twitter.com"} {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func tweetContent(t tweet) *entity.Content {
	return &entity.Content{
		Type:        "tweet",
		Text:        t.Text,
		Title:       "",
		Author:      t.Author,
		AuthorName:  t.AuthorName,
		CreatedAt:   t.CreatedAt,
		TweetID:     t.ID,
		Likes:       t.Likes,
		Retweets:    t.Retweets,
		Replies:     t.Replies,
		Media:       t.Media,
		IsNoteTweet: t.IsNote,
		ReplyToID:   t.ReplyTo,
	}
}

func threadContent(requestedID string, thread []tweet) *entity.Content {
	first := thread[0]
	blocks := make([]string, len(thread))
	tweets := make([]entity.Tweet, len(thread))
	for i, t := range thread {
		blocks[i] = fmt.Sprintf("[%d/%d] %s", i+1, len(thread), t.Text)
		tweets[i] = entity.Tweet{
			TweetID:   t.ID,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
			Likes:     t.Likes,
			Media:     t.Media,
		}
	}

	return &entity.Content{
		Type:         "thread",
		Text:         cleanText(strings.Join(blocks, "\n\n---\n\n")),
		Author:       first.Author,
		AuthorName:   first.AuthorName,
		CreatedAt:    first.CreatedAt,
		TweetID:      requestedID,
		ThreadSize:   len(thread),
		Tweets:       tweets,
		FirstTweetID: first.ID,
	}
}
