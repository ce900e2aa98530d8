// Package sanitizer removes executable and injectable constructs from
// fetched HTML and Markdown before the text leaves the pipeline.
//
// Sanitize is idempotent: every format applies its pass until the output
// stops changing, so a construct exposed by one pass (for example a tag
// reassembled after an inner element is dropped) is handled by the next.
// Input that has not settled after maxPasses is flattened to plain text.
package sanitizer

import (
	"html"
	"regexp"
	"strings"
)

// Format selects the sanitization passes applied to a string.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	// FormatText applies the HTML pass followed by the Markdown pass.
	FormatText Format = "text"
	// FormatAuto picks a format from the content itself. See Detect.
	FormatAuto Format = "auto"
)

// maxPasses bounds the fixpoint iteration.
const maxPasses = 8

var (
	htmlTagPattern  = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	markdownPattern = regexp.MustCompile(`(?m)(?:^#{1,6}\s|\*\*|__|\[.+\]\(.+\))`)
)

// Detect classifies content as HTML when it carries more than two HTML tags
// and more tags than Markdown constructs, as Markdown when it carries any
// Markdown construct, and as text otherwise.
func Detect(content string) Format {
	htmlCount := len(htmlTagPattern.FindAllStringIndex(content, -1))
	mdCount := len(markdownPattern.FindAllStringIndex(content, -1))

	switch {
	case htmlCount > mdCount && htmlCount > 2:
		return FormatHTML
	case mdCount > 0:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Sanitize cleans content according to format. Unknown formats are treated
// as FormatText.
func Sanitize(content string, format Format) string {
	if content == "" {
		return ""
	}

	pass := passFor(format)
	for i := 0; i < maxPasses; i++ {
		next := pass(content)
		if next == content {
			return content
		}
		content = next
	}
	return flatten(content)
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// flatten decodes entities and removes every angle bracket and dangerous
// link until nothing changes. Each round either shortens the string or
// leaves it as is, so the loop ends, and the result is a fixed point of
// every pass.
func flatten(content string) string {
	for {
		next := sanitizeMarkdown(angleBrackets.Replace(html.UnescapeString(content)))
		if next == content {
			return content
		}
		content = next
	}
}

func passFor(format Format) func(string) string {
	switch format {
	case FormatHTML:
		return sanitizeHTML
	case FormatMarkdown:
		return sanitizeMarkdown
	case FormatAuto:
		return func(s string) string {
			return passFor(Detect(s))(s)
		}
	default:
		return func(s string) string {
			return sanitizeMarkdown(sanitizeHTML(s))
		}
	}
}
