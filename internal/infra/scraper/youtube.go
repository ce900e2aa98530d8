package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

const (
	youtubeWatchURL  = "https://www.youtube.com/watch?v="
	youtubeOEmbedURL = "https://www.youtube.com/oembed?format=json&url="

	playerResponseMarker = "ytInitialPlayerResponse"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?.*&v=([a-zA-Z0-9_-]{11})`),
}

// errTranscript is a transcript failure. It never fails the whole fetch.
type errTranscript struct {
	msg       string
	transient bool
}

func (e *errTranscript) Error() string { return e.msg }

type oembed struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type segment struct {
	start int
	text  string
}

// YouTubeStrategy extracts video metadata and, when available, the
// transcript.
type YouTubeStrategy struct {
	api    apiClient
	cfg    Config
	logger *slog.Logger
}

// NewYouTubeStrategy creates the YouTube strategy.
func NewYouTubeStrategy(f HTTPFetcher, cfg Config, logger *slog.Logger) *YouTubeStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTubeStrategy{
		api:    apiClient{f: f, platform: "youtube"},
		cfg:    cfg,
		logger: logger,
	}
}

// ContentType implements scrape.Strategy.
func (s *YouTubeStrategy) ContentType() entity.ContentType {
	return entity.ContentTypeYouTube
}

// Fetch implements scrape.Strategy.
func (s *YouTubeStrategy) Fetch(ctx context.Context, rawURL string) (*scrape.Outcome, error) {
	id := videoID(rawURL)
	if id == "" {
		return nil, fmt.Errorf("%w: Could not extract video ID from URL", scrape.ErrInvalidURL)
	}

	var meta oembed
	err := s.api.getJSON(ctx, youtubeOEmbedURL+url.QueryEscape(youtubeWatchURL+id), nil, &meta)
	if err != nil {
		return nil, statusMessage(err, map[int]string{
			http.StatusNotFound:     "Video not found",
			http.StatusUnauthorized: "Video is private or embedding is disabled",
			http.StatusForbidden:    "Video is private or embedding is disabled",
		})
	}

	c := &entity.Content{
		Type:         "youtube",
		URL:          rawURL,
		Title:        cleanText(meta.Title),
		Author:       cleanText(meta.AuthorName),
		AuthorURL:    meta.AuthorURL,
		ThumbnailURL: meta.ThumbnailURL,
		VideoID:      id,
	}

	segments, lang, err := s.transcript(ctx, id)
	if err != nil {
		var te *errTranscript
		transientFailure := errors.As(err, &te) && te.transient
		s.logger.Info("transcript unavailable",
			slog.String("video_id", id),
			slog.String("reason", err.Error()),
			slog.Bool("transient", transientFailure))

		c.TranscriptError = err.Error()
		c.Text = cleanText(fmt.Sprintf("Video: %s\nAuthor: %s\n\n[Transcript not available: %s]",
			orDefault(c.Title, "Unknown"), orDefault(c.Author, "Unknown"), err.Error()))
		return &scrape.Outcome{Content: c, NoCache: transientFailure}, nil
	}

	lines := make([]string, len(segments))
	words := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = fmt.Sprintf("[%d:%02d] %s", seg.start/60, seg.start%60, seg.text)
		words[i] = seg.text
	}

	c.HasTranscript = true
	c.Text = cleanText(strings.Join(lines, "\n"))
	c.TranscriptText = cleanText(strings.Join(words, " "))
	c.TranscriptLanguage = lang
	c.SegmentsCount = len(segments)
	c.DurationSeconds = segments[len(segments)-1].start

	return &scrape.Outcome{Content: c}, nil
}

// transcript fetches the caption track that best matches the configured
// languages. Manual tracks win over auto-generated ones.
func (s *YouTubeStrategy) transcript(ctx context.Context, id string) ([]segment, string, error) {
	page, err := s.api.get(ctx, youtubeWatchURL+id, http.Header{"Accept-Language": {"en-US,en;q=0.9"}})
	if err != nil {
		return nil, "", &errTranscript{msg: "Transcript error: " + err.Error(), transient: transient(err)}
	}

	player, err := parsePlayerResponse(page.Body)
	if err != nil {
		return nil, "", &errTranscript{msg: "Transcript error: " + err.Error()}
	}
	if status := player.PlayabilityStatus.Status; status != "" && status != "OK" {
		return nil, "", &errTranscript{msg: "Video is unavailable"}
	}
	if player.Captions == nil || len(player.Captions.Renderer.CaptionTracks) == 0 {
		return nil, "", &errTranscript{msg: "Transcripts are disabled for this video"}
	}

	track, lang := pickTrack(player.Captions.Renderer.CaptionTracks, s.cfg.YouTubeLanguages)
	if track == nil {
		return nil, "", &errTranscript{msg: "No transcript found for this video"}
	}

	resp, err := s.api.get(ctx, track.BaseURL, nil)
	if err != nil {
		return nil, "", &errTranscript{msg: "Transcript error: " + err.Error(), transient: transient(err)}
	}
	segments, err := parseTimedText(resp.Body)
	if err != nil {
		return nil, "", &errTranscript{msg: "Transcript error: " + err.Error()}
	}
	if len(segments) == 0 {
		return nil, "", &errTranscript{msg: "No transcript available"}
	}
	return segments, lang, nil
}

// pickTrack chooses a manual track in the first preferred language, then
// an auto-generated one in a preferred language, then any auto-generated
// track. Auto-generated tracks report the language "auto".
func pickTrack(tracks []captionTrack, languages []string) (*captionTrack, string) {
	matches := func(t captionTrack, lang string) bool {
		code := strings.ToLower(t.LanguageCode)
		lang = strings.ToLower(lang)
		return code == lang || strings.HasPrefix(code, lang+"-")
	}

	for _, lang := range languages {
		for i, t := range tracks {
			if t.Kind != "asr" && matches(t, lang) {
				return &tracks[i], t.LanguageCode
			}
		}
	}
	for _, lang := range languages {
		for i, t := range tracks {
			if t.Kind == "asr" && matches(t, lang) {
				return &tracks[i], "auto"
			}
		}
	}
	for i, t := range tracks {
		if t.Kind == "asr" {
			return &tracks[i], "auto"
		}
	}
	return nil, ""
}

// parsePlayerResponse finds the player response object in the inline
// scripts of a watch page.
func parsePlayerResponse(page []byte) (*playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		i := strings.Index(text, playerResponseMarker)
		if i < 0 {
			return true
		}
		raw = jsonObjectAt(text, i+len(playerResponseMarker))
		return raw == ""
	})
	if raw == "" {
		return nil, errors.New("player response not found in watch page")
	}

	var player playerResponse
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return &player, nil
}

// jsonObjectAt returns the first balanced JSON object starting at or after
// offset, or "" when there is none.
func jsonObjectAt(s string, offset int) string {
	start := strings.IndexByte(s[offset:], '{')
	if start < 0 {
		return ""
	}
	start += offset

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// parseTimedText reads the timedtext XML format: one <text start="s">
// element per caption.
func parseTimedText(body []byte) ([]segment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse captions: %w", err)
	}

	var out []segment
	doc.Find("text").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(html.UnescapeString(sel.Text())), " ")
		if text == "" {
			return
		}
		start, _ := strconv.ParseFloat(sel.AttrOr("start", "0"), 64)
		out = append(out, segment{start: int(start), text: text})
	})
	return out, nil
}

func videoID(rawURL string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}
