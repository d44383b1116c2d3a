// Package blog fetches pages of blog articles.
package blog

import (
	"context"
	"encoding/json"

	"git.automatex.dev/stem/stemweb/src/richtext"
	"git.automatex.dev/stem/stemweb/src/stemapi"
)

type API interface {
	ListArticles(ctx context.Context, q stemapi.ArticlesQuery) (stemapi.BlogPage, error)
}

type Fetcher struct {
	API API
}

// FetchPage returns one page of articles exactly as the backend sent it.
func (f Fetcher) FetchPage(ctx context.Context, pageSize, pageNum int) (stemapi.BlogPage, error) {
	return f.API.ListArticles(ctx, stemapi.ArticlesQuery{PageSize: pageSize, Page: pageNum})
}

type Summary struct {
	ID      string
	Title   string
	Excerpt string
	Image   string
}

// Summaries reads what it can out of an article page for display. It accepts
// either a bare array or a paginated {"results": [...]} object and skips
// anything it does not recognize. counted reports whether total came from the
// backend's count rather than from the items in this page.
func Summaries(page stemapi.BlogPage) (summaries []Summary, total int, counted bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(page, &items); err == nil {
		total = len(items)
	} else {
		var paged struct {
			Count   *int              `json:"count"`
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(page, &paged); err != nil {
			return nil, 0, false
		}
		items = paged.Results
		if paged.Count != nil {
			total = *paged.Count
			counted = true
		}
	}

	for _, raw := range items {
		var article struct {
			ID          stemapi.EntityID `json:"id"`
			Title       any              `json:"title"`
			Description any              `json:"description"`
			Content     any              `json:"content"`
			Image       any              `json:"image"`
			Thumbnail   any              `json:"thumbnail"`
		}
		if err := json.Unmarshal(raw, &article); err != nil {
			continue
		}
		excerpt := str(article.Description)
		if excerpt == "" {
			excerpt = str(article.Content)
		}
		image := str(article.Image)
		if image == "" {
			image = str(article.Thumbnail)
		}
		summaries = append(summaries, Summary{
			ID:      article.ID.String(),
			Title:   richtext.StripTags(str(article.Title)),
			Excerpt: truncate(richtext.StripTags(excerpt), 200),
			Image:   image,
		})
	}
	if total < len(summaries) {
		total = len(summaries)
	}
	return summaries, total, counted
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
