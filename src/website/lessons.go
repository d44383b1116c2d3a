package website

import (
	"net/http"

	"git.automatex.dev/stem/stemweb/src/lessons"
	"git.automatex.dev/stem/stemweb/src/templates"
	"git.automatex.dev/stem/stemweb/src/viewstate"
)

type LessonPageData struct {
	templates.BaseData

	Loading      bool
	ErrorMessage string

	LessonTitle string
	Sections    []string
	Videos      []templates.LessonVideo
}

func LessonPage(c *RequestContext) ResponseData {
	if _, err := lessons.DecodeID(c.PathParams["id"]); err != nil {
		return FourOhFour(c)
	}

	viewer := lessons.NewViewer(c.Api)
	state, _ := viewer.Show(c, c.PathParams["id"])

	data := LessonPageData{
		BaseData: getBaseDataAutocrumb(c, "Lesson"),
		Loading:  state.IsLoading(),
	}

	var res ResponseData
	switch state.Phase() {
	case viewstate.Errored:
		data.ErrorMessage, _ = state.Message()
		res.StatusCode = http.StatusBadGateway
	case viewstate.Loaded:
		lesson, _ := state.Value()
		page := lessons.Project(lesson)
		data.Title = page.Title
		data.LessonTitle = page.Title
		data.Sections = page.Sections
		for _, v := range page.Videos {
			data.Videos = append(data.Videos, templates.LessonVideo{
				EmbedUrl: v.EmbedURL,
				Title:    v.Title,
			})
		}
	}

	res.MustWriteTemplate("lesson.html", data)
	return res
}
