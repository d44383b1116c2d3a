package website

import (
	"net/http"

	"git.automatex.dev/stem/stemweb/src/auth"
	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/stemurl"
)

// Deps are shared by every request.
type Deps struct {
	API      *stemapi.Client
	Sessions auth.SessionStore
	Previews preview.Store
}

func NewWebsiteRoutes(deps Deps) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			withDeps(deps),
			trackRequestMetrics,
			panicCatcherMiddleware,
			logContextErrorsMiddleware,
			loadSession,
			storeNoticesInCookieMiddleware,
		},
	}

	routes.GET(stemurl.RegexPublic, ServePublic)
	routes.GET(stemurl.RegexPreview, ServePreview)

	routes.GET(stemurl.RegexHomepage, Index)
	routes.GET(stemurl.RegexLogin, LoginPage)
	routes.POST(stemurl.RegexLogin, Login)
	routes.GET(stemurl.RegexLogout, Logout)

	routes.GET(stemurl.RegexForumListing, ForumListing)
	routes.GET(stemurl.RegexForumEdit, ForumEdit)

	postRoutes := routes.WithMiddleware(limitRequestBody(config.Config.Previews.MaxSize+maxFormMemory), csrfMiddleware)
	postRoutes.POST(stemurl.RegexForumEdit, ForumEditSubmit)
	postRoutes.POST(stemurl.RegexForumEditPreview, ForumEditPreview)
	postRoutes.POST(stemurl.RegexForumEditCancel, ForumEditCancel)

	routes.GET(stemurl.RegexLesson, LessonPage)
	routes.GET(stemurl.RegexBlog, BlogIndex)

	routes.AnyMethod(stemurl.RegexCatchAll, FourOhFour)

	return router
}

func limitRequestBody(n int64) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Req.Body = http.MaxBytesReader(c.Res, c.Req.Body, n)
			return h(c)
		}
	}
}
