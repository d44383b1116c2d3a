package website

import (
	"net/http"

	"git.automatex.dev/stem/stemweb/src/blog"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
	"git.automatex.dev/stem/stemweb/src/utils"
)

const articlesPerPage = 10

const msgArticlesFailed = "Failed to fetch articles. Please try again."

type BlogIndexData struct {
	templates.BaseData
	Articles   []templates.BlogSummary
	Pagination templates.Pagination
}

func BlogIndex(c *RequestContext) ResponseData {
	page, ok := parsePageParam(c.Req.URL.Query().Get("page"))
	if !ok {
		return c.Redirect(stemurl.BuildBlog(), http.StatusSeeOther)
	}

	baseData := getBaseDataAutocrumb(c, "Blog")

	var summaries []blog.Summary
	var total int
	var counted bool
	raw, err := blog.Fetcher{API: c.Api}.FetchPage(c, articlesPerPage, page)
	if err != nil {
		if page > 1 && c.Api.PaginatesArticles() && stemapi.StatusCode(err) == http.StatusNotFound {
			// Paged past the end.
			return c.Redirect(stemurl.BuildBlog(), http.StatusSeeOther)
		}
		c.Logger.Error().Err(err).Int("page", page).Msg("Error fetching articles")
		baseData.AddImmediateNotice("failure", msgArticlesFailed)
	} else {
		summaries, total, counted = blog.Summaries(raw)
	}

	switch {
	case len(summaries) > articlesPerPage:
		// A backend that ignores paging sends every article at once.
		start := utils.IntMin((page-1)*articlesPerPage, len(summaries))
		end := utils.IntMin(start+articlesPerPage, len(summaries))
		summaries = summaries[start:end]
	case err == nil && !counted && c.Api.PaginatesArticles():
		// One page with no count. A full page may have more after it.
		total = (page-1)*articlesPerPage + len(summaries)
		if len(summaries) == articlesPerPage {
			total++
		}
	}

	if err == nil && total > 0 && page > utils.NumPages(total, articlesPerPage) {
		return c.Redirect(stemurl.BuildBlogWithPage(utils.NumPages(total, articlesPerPage)), http.StatusSeeOther)
	}

	articles := make([]templates.BlogSummary, 0, len(summaries))
	for _, s := range summaries {
		articles = append(articles, templates.BlogSummary{
			Title:   s.Title,
			Excerpt: s.Excerpt,
			Image:   s.Image,
		})
	}

	var res ResponseData
	res.MustWriteTemplate("blog.html", BlogIndexData{
		BaseData:   baseData,
		Articles:   articles,
		Pagination: getPagination(page, total, articlesPerPage, stemurl.BuildBlogWithPage),
	})
	return res
}
