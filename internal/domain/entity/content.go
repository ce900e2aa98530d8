// Package entity defines the core domain records of the content pipeline:
// the request a caller submits, the platform-normalized content a strategy
// extracts, and the result envelope returned across the pipeline boundary.
package entity

// ContentType identifies the platform a URL was classified as.
type ContentType string

const (
	ContentTypeTwitter ContentType = "twitter"
	ContentTypeGitHub  ContentType = "github"
	ContentTypeGist    ContentType = "gist"
	ContentTypeYouTube ContentType = "youtube"
	ContentTypeReddit  ContentType = "reddit"
	ContentTypeWebpage ContentType = "webpage"
	ContentTypeUnknown ContentType = "unknown"
)

// String returns the wire name of the content type.
func (c ContentType) String() string {
	return string(c)
}

// TTLClass selects which cache lifetime applies to a stored result.
type TTLClass string

const (
	// TTLMetadata is used for records whose values drift quickly (stars, scores).
	TTLMetadata TTLClass = "metadata"
	// TTLContent is used for article bodies, transcripts and post text.
	TTLContent TTLClass = "content"
)

// Tweet is a single post inside a reconstructed thread.
type Tweet struct {
	TweetID   string   `json:"tweet_id"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"created_at,omitempty"`
	Likes     int      `json:"likes,omitempty"`
	Media     []string `json:"media,omitempty"`
}

// GistFile is one file of a gist. Omitted is set when the file content was
// left out of the text because the aggregate cap was reached.
type GistFile struct {
	Filename string `json:"filename"`
	Language string `json:"language,omitempty"`
	Size     int    `json:"size"`
	Omitted  bool   `json:"omitted,omitempty"`
}

// Comment is a node of a bounded Reddit comment tree.
type Comment struct {
	ID          string     `json:"id"`
	Author      string     `json:"author"`
	Body        string     `json:"body"`
	Score       int        `json:"score"`
	CreatedAt   string     `json:"created_at,omitempty"`
	IsSubmitter bool       `json:"is_submitter,omitempty"`
	Depth       int        `json:"depth"`
	Replies     []*Comment `json:"replies,omitempty"`
}

// Content is the platform-normalized record produced by a strategy.
//
// Text, Title, Author and CreatedAt are always populated (possibly empty
// strings); the remaining fields are set only by the platform that owns them.
// A Content value is treated as immutable once a strategy returns it.
type Content struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Text      string `json:"text"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`

	// Twitter / X
	TweetID      string   `json:"tweet_id,omitempty"`
	AuthorName   string   `json:"author_name,omitempty"`
	Likes        int      `json:"likes,omitempty"`
	Retweets     int      `json:"retweets,omitempty"`
	Replies      int      `json:"replies,omitempty"`
	Media        []string `json:"media,omitempty"`
	IsNoteTweet  bool     `json:"is_note_tweet,omitempty"`
	ReplyToID    string   `json:"reply_to_id,omitempty"`
	ThreadSize   int      `json:"thread_size,omitempty"`
	Tweets       []Tweet  `json:"tweets,omitempty"`
	FirstTweetID string   `json:"first_tweet_id,omitempty"`
	ArticleID    string   `json:"article_id,omitempty"`

	// GitHub
	Owner           string   `json:"owner,omitempty"`
	Repo            string   `json:"repo,omitempty"`
	Description     string   `json:"description,omitempty"`
	Stars           int      `json:"stars,omitempty"`
	Forks           int      `json:"forks,omitempty"`
	OpenIssues      int      `json:"open_issues,omitempty"`
	Language        string   `json:"language,omitempty"`
	License         string   `json:"license,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	Homepage        string   `json:"homepage,omitempty"`
	IsArchived      bool     `json:"is_archived,omitempty"`
	IsFork          bool     `json:"is_fork,omitempty"`
	DefaultBranch   string   `json:"default_branch,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
	PushedAt        string   `json:"pushed_at,omitempty"`
	Readme          string   `json:"readme,omitempty"`
	ReadmeTruncated bool     `json:"readme_truncated,omitempty"`

	// Gist
	GistID string     `json:"gist_id,omitempty"`
	Files  []GistFile `json:"files,omitempty"`

	// YouTube
	VideoID            string `json:"video_id,omitempty"`
	AuthorURL          string `json:"author_url,omitempty"`
	ThumbnailURL       string `json:"thumbnail_url,omitempty"`
	HasTranscript      bool   `json:"has_transcript,omitempty"`
	TranscriptText     string `json:"transcript_text,omitempty"`
	TranscriptLanguage string `json:"transcript_language,omitempty"`
	TranscriptError    string `json:"transcript_error,omitempty"`
	DurationSeconds    int    `json:"duration_seconds,omitempty"`
	SegmentsCount      int    `json:"segments_count,omitempty"`

	// Reddit
	PostID      string     `json:"post_id,omitempty"`
	CommentID   string     `json:"comment_id,omitempty"`
	Subreddit   string     `json:"subreddit,omitempty"`
	Selftext    string     `json:"selftext,omitempty"`
	Score       int        `json:"score,omitempty"`
	UpvoteRatio float64    `json:"upvote_ratio,omitempty"`
	NumComments int        `json:"num_comments,omitempty"`
	IsSelf      bool       `json:"is_self,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"`
	Comments    []*Comment `json:"comments,omitempty"`

	// Webpage
	SiteName   string `json:"site_name,omitempty"`
	Image      string `json:"image,omitempty"`
	TextLength int    `json:"text_length,omitempty"`
	FeedItems  int    `json:"feed_items,omitempty"`
}

// Result is the envelope returned by every public entry point of the
// pipeline. Failures never escape as raw errors: they are reported through
// Success=false and a human-readable Error.
type Result struct {
	Success     bool        `json:"success"`
	ContentType ContentType `json:"content_type"`
	URL         string      `json:"url"`
	ResolvedURL string      `json:"resolved_url,omitempty"`
	Data        *Content    `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
	FromCache   bool        `json:"from_cache,omitempty"`

	// Err is the classified cause of a failure. It is not serialized.
	Err error `json:"-"`
}

// Failure builds an unsuccessful envelope.
func Failure(ct ContentType, url string, reason string) Result {
	return Result{
		Success:     false,
		ContentType: ct,
		URL:         url,
		Error:       reason,
	}
}
