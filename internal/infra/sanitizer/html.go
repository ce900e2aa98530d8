package sanitizer

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

// safeTags is the allow-list of elements kept in HTML output.
var safeTags = map[string]bool{
	"p": true, "a": true, "b": true, "i": true, "em": true, "strong": true,
	"ul": true, "ol": true, "li": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "code": true, "blockquote": true, "span": true, "div": true,
	"dl": true, "dt": true, "dd": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
	"sup": true, "sub": true, "abbr": true,
}

// safeAttrs lists the attributes kept per tag. Tags absent here keep none.
var safeAttrs = map[string]map[string]bool{
	"a":    {"href": true, "title": true},
	"abbr": {"title": true},
}

// urlAttrs carry URLs and are checked for dangerous schemes.
var urlAttrs = map[string]bool{"href": true, "src": true, "action": true, "formaction": true}

// droppedWithContent are removed together with everything inside them.
// Raw-text elements are here too: their content is never markup.
var droppedWithContent = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true,
	"form": true, "svg": true, "math": true, "noscript": true, "template": true,
	"xmp": true, "title": true, "textarea": true, "noembed": true,
	"noframes": true, "plaintext": true, "listing": true,
}

// droppedVoid are removed; they have no content.
var droppedVoid = map[string]bool{
	"input": true, "base": true, "meta": true, "link": true, "embed": true,
}

var dangerousSchemes = []string{"javascript:", "vbscript:", "data:"}

// attrValueQuote keeps rendered attribute values free of the delimiter
// without introducing entities, which the next pass would decode.
var attrValueQuote = strings.NewReplacer(`"`, "'")

// sanitizeHTML is one HTML pass: decode entities, drop dangerous elements
// with their content, drop comments, and rebuild the remaining allowed tags
// with allowed attributes only.
func sanitizeHTML(content string) string {
	content = html.UnescapeString(content)

	var out strings.Builder
	out.Grow(len(content))

	z := nethtml.NewTokenizer(strings.NewReader(content))
	var skip []string

	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			// io.EOF or a malformed tail; either way the output so far is safe.
			break
		}

		switch tt {
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			tok := z.Token()
			name := tok.Data
			if droppedWithContent[name] {
				if tt == nethtml.StartTagToken {
					skip = append(skip, name)
				}
				continue
			}
			if len(skip) > 0 || droppedVoid[name] || !safeTags[name] {
				continue
			}
			out.WriteString(renderStartTag(name, tok.Attr))

		case nethtml.EndTagToken:
			tok := z.Token()
			name := tok.Data
			if n := len(skip); n > 0 {
				if skip[n-1] == name {
					skip = skip[:n-1]
				}
				continue
			}
			if safeTags[name] {
				out.WriteString("</" + name + ">")
			}

		case nethtml.TextToken:
			if len(skip) == 0 {
				out.Write(z.Raw())
			}

		case nethtml.CommentToken, nethtml.DoctypeToken:
			// dropped
		}
	}

	return out.String()
}

func renderStartTag(name string, attrs []nethtml.Attribute) string {
	allowed := safeAttrs[name]

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(name)
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if !allowed[key] {
			continue
		}
		if urlAttrs[key] && hasDangerousScheme(a.Val) {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		if a.Val != "" {
			b.WriteString(`="`)
			b.WriteString(attrValueQuote.Replace(a.Val))
			b.WriteString(`"`)
		}
	}
	b.WriteString(">")
	return b.String()
}

// hasDangerousScheme reports whether v starts with a script-capable scheme
// once entities, whitespace and control characters are removed.
func hasDangerousScheme(v string) bool {
	v = html.UnescapeString(v)
	compact := strings.Map(func(r rune) rune {
		if r <= 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
	compact = strings.ToLower(compact)
	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(compact, scheme) {
			return true
		}
	}
	return false
}
