package sanitizer

import (
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
)

// gap matches the whitespace and control characters browsers ignore inside
// a URL scheme ("java\tscript:").
const gap = `[\s\x00-\x1f]*`

func spaced(word string) string {
	out := ""
	for i, r := range word {
		if i > 0 {
			out += gap
		}
		out += regexp.QuoteMeta(string(r))
	}
	return out
}

var dangerousScheme = `(?:` + spaced("javascript") + `|` + spaced("vbscript") + `|` + spaced("data") + `)` + gap + `:`

var (
	// Dangerous inline HTML, removed with its content. Void elements have no
	// closing tag.
	reBlockTags = regexp.MustCompile(`(?is)<(script|style|iframe|object|form|svg|math|noscript|template)\b[^>]*>.*?</\s*(?:script|style|iframe|object|form|svg|math|noscript|template)\s*>`)
	reVoidTags  = regexp.MustCompile(`(?i)<(?:input|base|meta|link|embed)\b[^>]*>`)
	// An opening dangerous tag left without its closing tag.
	reOpenTags = regexp.MustCompile(`(?i)</?\s*(?:script|style|iframe|object|form|svg|math|noscript|template)\b[^>]*>`)

	reComment = regexp.MustCompile(`(?s)<!--.*?-->`)

	// Any remaining inline tag; handlers and script URLs are removed inside it.
	reInlineTag = regexp.MustCompile(`<[a-zA-Z][^<>]*>`)

	// [text](javascript:...) with up to one level of nested parentheses in
	// the target.
	reDangerousLink = regexp.MustCompile(`(?i)\[([^\]]*)\]\(\s*` + dangerousScheme + `(?:[^()]|\([^()]*\))*\)`)
)

// sanitizeMarkdown is one Markdown pass. Standard Markdown syntax is left
// untouched; only inline HTML constructs and dangerous link targets change.
func sanitizeMarkdown(content string) string {
	result := reComment.ReplaceAllString(content, "")
	result = reBlockTags.ReplaceAllString(result, "")
	result = reVoidTags.ReplaceAllString(result, "")
	result = reOpenTags.ReplaceAllString(result, "")
	result = reInlineTag.ReplaceAllStringFunc(result, cleanInlineTag)
	result = reDangerousLink.ReplaceAllString(result, "$1")
	return result
}

// cleanInlineTag drops on* attributes and points script-capable URL
// attributes at "#". The tag is returned untouched when nothing was removed
// and re-rendered otherwise.
func cleanInlineTag(tag string) string {
	z := nethtml.NewTokenizer(strings.NewReader(tag))
	tt := z.Next()
	if tt != nethtml.StartTagToken && tt != nethtml.SelfClosingTagToken {
		return ""
	}
	tok := z.Token()

	changed := false
	kept := tok.Attr[:0]
	for _, a := range tok.Attr {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			changed = true
			continue
		}
		if urlAttrs[key] && hasDangerousScheme(a.Val) {
			a.Val = "#"
			changed = true
		}
		kept = append(kept, a)
	}
	if !changed {
		return tag
	}
	tok.Attr = kept
	return tok.String()
}
