package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// hostAliases maps alternate hostnames of the same site to one canonical host.
var hostAliases = map[string]string{
	"twitter.com":        "x.com",
	"www.twitter.com":    "x.com",
	"mobile.twitter.com": "x.com",
	"www.x.com":          "x.com",
	"www.reddit.com":     "reddit.com",
	"old.reddit.com":     "reddit.com",
}

// NormalizeURL returns the canonical form of raw used for cache keys:
// lowercased scheme and host, no fragment, aliased domains collapsed and no
// trailing slash. Path and query keep their case.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if alias, ok := hostAliases[u.Host]; ok {
		u.Host = alias
	}
	u.Fragment = ""
	u.RawFragment = ""

	return strings.TrimRight(u.String(), "/")
}

// Key returns the hex SHA-256 of the normalized URL.
func Key(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return hex.EncodeToString(sum[:])
}
