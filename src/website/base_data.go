package website

import (
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
)

func getBaseDataAutocrumb(c *RequestContext, title string) templates.BaseData {
	return getBaseData(c, title, []templates.Breadcrumb{{Name: title, Url: ""}})
}

// NOTE: If you set breadcrumbs, a breadcrumb for the homepage will automatically be prepended.
//
//	If you pass nil, no breadcrumbs will be created.
func getBaseData(c *RequestContext, title string, breadcrumbs []templates.Breadcrumb) templates.BaseData {
	if len(breadcrumbs) > 0 {
		homeUrl := stemurl.BuildHomepage()
		if breadcrumbs[0].Url != homeUrl {
			breadcrumbs = append([]templates.Breadcrumb{{Name: "STEM", Url: homeUrl}}, breadcrumbs...)
		}
	}

	var templateSession *templates.Session
	if c.CurrentSession != nil {
		templateSession = &templates.Session{CSRFToken: c.CurrentSession.CSRFToken}
	}

	return templates.BaseData{
		Title:       title,
		Breadcrumbs: breadcrumbs,
		Notices:     getNoticesFromCookie(c),

		CurrentUrl:   c.FullUrl(),
		LoginPageUrl: stemurl.BuildLoginPage(c.FullUrl()),

		Session: templateSession,
		Header: templates.Header{
			HomepageUrl:     stemurl.BuildHomepage(),
			ForumListingUrl: stemurl.BuildForumListing(),
			BlogUrl:         stemurl.BuildBlog(),
			LoginUrl:        stemurl.BuildLoginPage(c.FullUrl()),
			LogoutUrl:       stemurl.BuildLogout(),
		},
	}
}
