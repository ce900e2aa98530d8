package scrape

import (
	"net/url"
	"strings"

	"webintel/internal/domain/entity"
)

// platformRule maps a set of registrable domains to a content type.
type platformRule struct {
	domains     []string
	contentType entity.ContentType
}

// platformTable is ordered; the first matching rule wins, so gist comes
// before github.
var platformTable = []platformRule{
	{domains: []string{"x.com", "twitter.com"}, contentType: entity.ContentTypeTwitter},
	{domains: []string{"gist.github.com"}, contentType: entity.ContentTypeGist},
	{domains: []string{"github.com"}, contentType: entity.ContentTypeGitHub},
	{domains: []string{"youtube.com", "youtu.be"}, contentType: entity.ContentTypeYouTube},
	{domains: []string{"reddit.com", "redd.it"}, contentType: entity.ContentTypeReddit},
}

// Classify returns the content type for rawURL. A host matches a rule when
// it equals one of the rule's domains or is a subdomain of it
// ("www.youtube.com", "old.reddit.com"). Any other http(s) URL whose host
// contains a dot is a webpage; everything else is unknown.
func Classify(rawURL string) entity.ContentType {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return entity.ContentTypeUnknown
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return entity.ContentTypeUnknown
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return entity.ContentTypeUnknown
	}

	for _, rule := range platformTable {
		for _, d := range rule.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return rule.contentType
			}
		}
	}

	if strings.Contains(host, ".") {
		return entity.ContentTypeWebpage
	}
	return entity.ContentTypeUnknown
}
