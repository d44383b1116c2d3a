package stemurl

import (
	"net/url"
	"regexp"
	"strconv"

	"git.automatex.dev/stem/stemweb/src/oops"
)

var RegexHomepage = regexp.MustCompile("^/$")

func BuildHomepage() string {
	return Url("/", nil)
}

var RegexLogin = regexp.MustCompile("^/login$")

func BuildLogin() string {
	return Url("/login", nil)
}

// BuildLoginPage links to the login page, returning to redirectTo afterwards.
func BuildLoginPage(redirectTo string) string {
	if redirectTo == "" {
		return BuildLogin()
	}
	return Url("/login", []Q{{Name: "redirect", Value: redirectTo}})
}

var RegexLogout = regexp.MustCompile("^/logout$")

func BuildLogout() string {
	return Url("/logout", nil)
}

/*
* Forums
 */

var RegexForumListing = regexp.MustCompile("^/getforum$")

func BuildForumListing() string {
	return Url("/getforum", nil)
}

var RegexForumEdit = regexp.MustCompile(`^/forums/(?P<id>[^/]+)/edit$`)

func BuildForumEdit(id string) string {
	return Url("/forums/"+escapeID(id)+"/edit", nil)
}

var RegexForumEditPreview = regexp.MustCompile(`^/forums/(?P<id>[^/]+)/edit/preview$`)

func BuildForumEditPreview(id string) string {
	return Url("/forums/"+escapeID(id)+"/edit/preview", nil)
}

var RegexForumEditCancel = regexp.MustCompile(`^/forums/(?P<id>[^/]+)/edit/cancel$`)

func BuildForumEditCancel(id string) string {
	return Url("/forums/"+escapeID(id)+"/edit/cancel", nil)
}

/*
* Lessons
 */

var RegexLesson = regexp.MustCompile(`^/lessons/(?P<id>[^/]+)$`)

func BuildLesson(id string) string {
	return Url("/lessons/"+escapeID(id), nil)
}

/*
* Blog
 */

var RegexBlog = regexp.MustCompile("^/blog$")

func BuildBlog() string {
	return Url("/blog", nil)
}

func BuildBlogWithPage(page int) string {
	if page < 1 {
		panic(oops.New(nil, "Invalid blog page (%d), must be >= 1", page))
	}
	if page == 1 {
		return BuildBlog()
	}
	return Url("/blog", []Q{{Name: "page", Value: strconv.Itoa(page)}})
}

/*
* Previews
 */

var RegexPreview = regexp.MustCompile(`^/preview/(?P<id>[0-9a-fA-F-]{36})$`)

func BuildPreview(id string) string {
	return Url("/preview/"+id, nil)
}

/*
* Static
 */

var RegexPublic = regexp.MustCompile(`^/public/(?P<path>.+)$`)

func BuildPublic(filepath string) string {
	return StaticUrl(filepath, nil)
}

/*
* Catch-all
 */

var RegexCatchAll = regexp.MustCompile("^")

func escapeID(id string) string {
	return url.PathEscape(id)
}
