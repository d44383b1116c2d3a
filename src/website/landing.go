package website

import (
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
)

type LandingTemplateData struct {
	templates.BaseData

	ForumListingUrl string
	BlogUrl         string
}

func Index(c *RequestContext) ResponseData {
	var res ResponseData
	res.MustWriteTemplate("landing.html", LandingTemplateData{
		BaseData:        getBaseData(c, "", nil),
		ForumListingUrl: stemurl.BuildForumListing(),
		BlogUrl:         stemurl.BuildBlog(),
	})
	return res
}
