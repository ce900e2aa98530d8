package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://WWW.Twitter.com/x/status/1/", "https://x.com/x/status/1"},
		{"https://x.com/x/status/1", "https://x.com/x/status/1"},
		{"https://twitter.com/Jack/status/20#top", "https://x.com/Jack/status/20"},
		{"HTTPS://Old.Reddit.com/r/golang/comments/abc/", "https://reddit.com/r/golang/comments/abc"},
		{"https://www.reddit.com/r/golang", "https://reddit.com/r/golang"},
		{"https://Example.COM/Path/Keeps/Case?Q=1", "https://example.com/Path/Keeps/Case?Q=1"},
		{"  https://example.com/  ", "https://example.com"},
		{"", ""},
		{"not a url/", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestKey_AliasesHashIdentically(t *testing.T) {
	assert.Equal(t, Key("https://WWW.Twitter.com/x/status/1/"), Key("https://x.com/x/status/1"))
	assert.Equal(t, Key("https://old.reddit.com/r/a"), Key("https://reddit.com/r/a/"))
	assert.NotEqual(t, Key("https://x.com/x/status/1"), Key("https://x.com/x/status/2"))
	assert.Len(t, Key("https://example.com"), 64)
}
