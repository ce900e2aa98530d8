package scraper

import (
	"context"
	"fmt"
	"html"
	"strings"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

// fxArticle is the long-form article attached to a post.
type fxArticle struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PreviewText string `json:"preview_text"`
	CreatedAt   string `json:"created_at"`
	Content     struct {
		Blocks []articleBlock `json:"blocks"`
	} `json:"content"`
}

type articleBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var blockTags = map[string]string{
	"header-one":   "h1",
	"header-two":   "h2",
	"header-three": "h3",
	"blockquote":   "blockquote",
	"code-block":   "pre",
}

// fetchArticle extracts the article attached to post id.
func (s *TwitterStrategy) fetchArticle(ctx context.Context, id string) (*entity.Content, error) {
	fx, err := s.fxTwitter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", id, err)
	}
	if fx.Article == nil {
		return nil, fmt.Errorf("%w: post %s carries no article", scrape.ErrExtraction, id)
	}
	a := fx.Article

	body, err := htmlToMarkdown(articleHTML(a.Content.Blocks))
	if err != nil {
		return nil, fmt.Errorf("%w: render article %s: %v", scrape.ErrExtraction, id, err)
	}
	body = cleanMarkdown(body)
	if body == "" {
		body = cleanText(a.PreviewText)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: article %s is empty", scrape.ErrExtraction, id)
	}

	createdAt := a.CreatedAt
	if createdAt == "" {
		createdAt = fx.CreatedAt
	}
	articleID := a.ID
	if articleID == "" {
		articleID = id
	}

	return &entity.Content{
		Type:        "article",
		Text:        body,
		Title:       cleanText(a.Title),
		Author:      "@" + handleOr(fx.Author.ScreenName),
		AuthorName:  fx.Author.Name,
		CreatedAt:   createdAt,
		TweetID:     fx.ID,
		ArticleID:   articleID,
		Description: cleanText(a.PreviewText),
		Likes:       fx.Likes,
		Retweets:    fx.Retweets,
	}, nil
}

// articleHTML renders content blocks as HTML. Consecutive list items share
// one list element.
func articleHTML(blocks []articleBlock) string {
	var b strings.Builder
	openList := ""

	closeList := func() {
		if openList != "" {
			b.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, blk := range blocks {
		text := html.EscapeString(blk.Text)

		var list string
		switch blk.Type {
		case "unordered-list-item":
			list = "ul"
		case "ordered-list-item":
			list = "ol"
		}
		if list != openList {
			closeList()
			if list != "" {
				b.WriteString("<" + list + ">")
				openList = list
			}
		}
		if list != "" {
			b.WriteString("<li>" + text + "</li>")
			continue
		}

		switch blk.Type {
		case "atomic":
			continue
		case "code-block":
			b.WriteString("<pre><code>" + text + "</code></pre>")
			continue
		}
		if strings.TrimSpace(blk.Text) == "" {
			continue
		}
		tag, ok := blockTags[blk.Type]
		if !ok {
			tag = "p"
		}
		b.WriteString("<" + tag + ">" + text + "</" + tag + ">")
	}
	closeList()
	return b.String()
}
