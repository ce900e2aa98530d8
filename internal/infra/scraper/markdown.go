package scraper

import (
	"regexp"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLines = regexp.MustCompile(`\n{4,}`)

// markdownConverter returns the shared HTML to Markdown converter with the
// GitHub Flavored Markdown extensions enabled.
var markdownConverter = sync.OnceValue(func() *md.Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return conv
})

// htmlToMarkdown converts an HTML fragment and collapses runs of blank lines.
func htmlToMarkdown(fragment string) (string, error) {
	out, err := markdownConverter().ConvertString(fragment)
	if err != nil {
		return "", err
	}
	out = excessiveLines.ReplaceAllString(out, "\n\n\n")
	return strings.TrimSpace(out), nil
}
