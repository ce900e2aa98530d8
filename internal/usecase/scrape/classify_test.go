package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"webintel/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want entity.ContentType
	}{
		{"https://x.com/jack/status/20", entity.ContentTypeTwitter},
		{"https://twitter.com/jack/status/20", entity.ContentTypeTwitter},
		{"https://mobile.twitter.com/jack/status/20", entity.ContentTypeTwitter},
		{"https://github.com/golang/go", entity.ContentTypeGitHub},
		{"https://www.github.com/golang/go", entity.ContentTypeGitHub},
		{"https://gist.github.com/octocat/aa5a315d61ae9438b18d", entity.ContentTypeGist},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", entity.ContentTypeYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", entity.ContentTypeYouTube},
		{"https://m.youtube.com/shorts/dQw4w9WgXcQ", entity.ContentTypeYouTube},
		{"https://old.reddit.com/r/golang/comments/abc123/title/", entity.ContentTypeReddit},
		{"https://redd.it/abc123", entity.ContentTypeReddit},
		{"https://EXAMPLE.com/Article", entity.ContentTypeWebpage},
		{"http://blog.example.co.uk/post", entity.ContentTypeWebpage},
		{"https://notgithub.com/a/b", entity.ContentTypeWebpage},
		{"https://github.com.evil.example/a/b", entity.ContentTypeWebpage},
		{"ftp://example.com/file", entity.ContentTypeUnknown},
		{"https://localhost/", entity.ContentTypeUnknown},
		{"not a url", entity.ContentTypeUnknown},
		{"", entity.ContentTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}
