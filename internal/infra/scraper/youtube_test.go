package scraper_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webintel/internal/infra/fetcher/fetchertest"
	"webintel/internal/infra/scraper"
	"webintel/internal/usecase/scrape"
)

const videoID = "dQw4w9WgXcQ"

type fakeYouTube struct {
	tracks      []map[string]any
	playability string
	captions    map[string]string // lang -> timedtext XML
	watchStatus int
	oembedURL   string
}

func (y *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/oembed":
		y.oembedURL = r.URL.Query().Get("url")
		if y.oembedURL != "https://www.youtube.com/watch?v="+videoID {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":         "Never Gonna Give You Up",
			"author_name":   "Rick Astley",
			"author_url":    "https://www.youtube.com/@RickAstleyYT",
			"thumbnail_url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		})
	case "/watch":
		if y.watchStatus != 0 {
			w.WriteHeader(y.watchStatus)
			return
		}
		player := map[string]any{
			"playabilityStatus": map[string]any{"status": y.playability},
		}
		if y.tracks != nil {
			player["captions"] = map[string]any{
				"playerCaptionsTracklistRenderer": map[string]any{"captionTracks": y.tracks},
			}
		}
		raw, _ := json.Marshal(player)
		fmt.Fprintf(w, `<html><head><script>var other = {"a": "}"};</script>
<script>var ytInitialPlayerResponse = %s;var meta = {};</script></head><body></body></html>`, raw)
	case "/api/timedtext":
		body, ok := y.captions[r.URL.Query().Get("lang")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

func track(lang, kind string) map[string]any {
	t := map[string]any{
		"baseUrl":      "https://www.youtube.com/api/timedtext?v=" + videoID + "&lang=" + lang,
		"languageCode": lang,
	}
	if kind != "" {
		t["kind"] = kind
	}
	return t
}

const timedText = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">We&amp;#39;re no strangers</text>
<text start="65.2" dur="3">to   love</text>
<text start="125" dur="1"></text>
</transcript>`

func newYouTube(t *testing.T, y *fakeYouTube) *scraper.YouTubeStrategy {
	t.Helper()
	srv := httptest.NewServer(y)
	t.Cleanup(srv.Close)
	f, _ := fetchertest.New(srv)
	return scraper.NewYouTubeStrategy(f, scraper.DefaultConfig(), nil)
}

func TestYouTubeStrategy_Transcript(t *testing.T) {
	y := &fakeYouTube{
		playability: "OK",
		tracks:      []map[string]any{track("de", ""), track("en", "asr"), track("en-GB", "")},
		captions:    map[string]string{"en-GB": timedText},
	}

	s := newYouTube(t, y)
	out, err := s.Fetch(context.Background(), "https://youtu.be/"+videoID+"?t=42")
	require.NoError(t, err)

	c := out.Content
	assert.Equal(t, "youtube", c.Type)
	assert.Equal(t, videoID, c.VideoID)
	assert.Equal(t, "Never Gonna Give You Up", c.Title)
	assert.Equal(t, "Rick Astley", c.Author)
	assert.True(t, c.HasTranscript)
	assert.Equal(t, "en-GB", c.TranscriptLanguage, "manual track in a preferred language wins over auto-generated")
	assert.Equal(t, "[0:00] We're no strangers\n[1:05] to love", c.Text)
	assert.Equal(t, "We're no strangers to love", c.TranscriptText)
	assert.Equal(t, 2, c.SegmentsCount)
	assert.Equal(t, 65, c.DurationSeconds)
	assert.False(t, out.NoCache)
}

func TestYouTubeStrategy_AutoGeneratedFallback(t *testing.T) {
	y := &fakeYouTube{
		playability: "OK",
		tracks:      []map[string]any{track("de", ""), track("en", "asr")},
		captions:    map[string]string{"en": timedText},
	}

	s := newYouTube(t, y)
	out, err := s.Fetch(context.Background(), "https://www.youtube.com/watch?feature=share&v="+videoID)
	require.NoError(t, err)

	assert.True(t, out.Content.HasTranscript)
	assert.Equal(t, "auto", out.Content.TranscriptLanguage)
}

func TestYouTubeStrategy_MissingTranscriptIsNotFatal(t *testing.T) {
	tests := []struct {
		name        string
		y           *fakeYouTube
		wantErr     string
		wantNoCache bool
	}{
		{
			name:    "captions disabled",
			y:       &fakeYouTube{playability: "OK"},
			wantErr: "Transcripts are disabled for this video",
		},
		{
			name:    "no usable track",
			y:       &fakeYouTube{playability: "OK", tracks: []map[string]any{track("de", "")}},
			wantErr: "No transcript found for this video",
		},
		{
			name:    "unplayable",
			y:       &fakeYouTube{playability: "LOGIN_REQUIRED"},
			wantErr: "Video is unavailable",
		},
		{
			name:        "watch page unavailable",
			y:           &fakeYouTube{watchStatus: http.StatusServiceUnavailable},
			wantErr:     "Transcript error",
			wantNoCache: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newYouTube(t, tt.y)
			out, err := s.Fetch(context.Background(), "https://www.youtube.com/shorts/"+videoID)
			require.NoError(t, err)

			c := out.Content
			assert.False(t, c.HasTranscript)
			assert.Contains(t, c.TranscriptError, tt.wantErr)
			assert.Contains(t, c.Text, "Video: Never Gonna Give You Up\nAuthor: Rick Astley\n\n[Transcript not available: ")
			assert.Equal(t, tt.wantNoCache, out.NoCache)
		})
	}
}

func TestYouTubeStrategy_Errors(t *testing.T) {
	s := newYouTube(t, &fakeYouTube{})

	_, err := s.Fetch(context.Background(), "https://www.youtube.com/channel/UC123")
	assert.ErrorIs(t, err, scrape.ErrInvalidURL)

	_, err = s.Fetch(context.Background(), "https://www.youtube.com/embed/AAAAAAAAAAA")
	require.Error(t, err)
	assert.ErrorIs(t, err, scrape.ErrNotFound)
	assert.Contains(t, err.Error(), "Video not found")
}
