package website

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/editor"
	"git.automatex.dev/stem/stemweb/src/oops"
	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/richtext"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
	"git.automatex.dev/stem/stemweb/src/viewstate"
)

const (
	msgPreviewExpired  = "The selected image has expired. Please choose it again."
	msgPreviewNotImage = "The selected file does not look like an image. It will be uploaded as it is."
	msgPreviewTooLarge = "The selected image is too large."
	msgPreviewFailed   = "Failed to load the selected image. Please try again."
	msgListingFailed   = "Failed to fetch forums. Please try again."
)

type ForumListItem struct {
	Title       string
	Description string
	EditUrl     string
}

type ForumListingData struct {
	templates.BaseData
	Forums []ForumListItem
}

func ForumListing(c *RequestContext) ResponseData {
	baseData := getBaseDataAutocrumb(c, "Forums")

	var items []ForumListItem
	raw, err := c.Api.ListForums(c)
	if err == nil {
		var forums []stemapi.Forum
		forums, err = forumsFromListing(raw)
		for _, f := range forums {
			if f.ID.IsZero() {
				continue
			}
			items = append(items, ForumListItem{
				Title:       richtext.StripTags(f.Title),
				Description: richtext.StripTags(f.Description),
				EditUrl:     stemurl.BuildForumEdit(f.ID.String()),
			})
		}
	}
	if err != nil {
		c.Logger.Error().Err(err).Msg("Error fetching forums")
		baseData.AddImmediateNotice("failure", msgListingFailed)
	}

	var res ResponseData
	res.MustWriteTemplate("forum_listing.html", ForumListingData{
		BaseData: baseData,
		Forums:   items,
	})
	return res
}

// forumsFromListing accepts either a bare array of forums or a paginated
// {"results": [...]} object.
func forumsFromListing(raw json.RawMessage) ([]stemapi.Forum, error) {
	var forums []stemapi.Forum
	if err := json.Unmarshal(raw, &forums); err == nil {
		return forums, nil
	}

	var paged struct {
		Results []stemapi.Forum `json:"results"`
	}
	if err := json.Unmarshal(raw, &paged); err != nil {
		return nil, oops.New(err, "unrecognized forum listing")
	}
	return paged.Results, nil
}

// webNotifier collects editor notices so they can be shown on the rendered
// page, or carried across a redirect.
type webNotifier struct {
	notices []templates.Notice
}

func (n *webNotifier) Notify(level editor.Level, title, message string) {
	class := "success"
	if level == editor.LevelError {
		class = "failure"
	}
	n.notices = append(n.notices, templates.Notice{Class: class, Content: message})
}

func (n *webNotifier) fail(message string) {
	n.Notify(editor.LevelError, editor.TitleError, message)
}

func (n *webNotifier) warn(message string) {
	n.notices = append(n.notices, templates.Notice{Class: "warn", Content: message})
}

type redirectNavigator struct {
	dest      string
	navigated bool
}

func (n *redirectNavigator) Navigate(path string) {
	n.dest = path
	n.navigated = true
}

// formConfirmer answers the cancel prompt with what the user posted on the
// confirmation page.
type formConfirmer struct {
	answer bool
}

func (f formConfirmer) Confirm(ctx context.Context, p editor.Prompt) (bool, error) {
	return f.answer, nil
}

type forumEditPage struct {
	id    string
	ed    *editor.ForumEditor
	notes *webNotifier
	nav   *redirectNavigator
}

func newForumEditPage(c *RequestContext, id string, confirmer editor.Confirmer) *forumEditPage {
	if confirmer == nil {
		confirmer = formConfirmer{}
	}

	p := &forumEditPage{
		id:    id,
		notes: &webNotifier{},
		nav:   &redirectNavigator{},
	}
	p.ed = editor.New(editor.Deps{
		API:         c.Api,
		Notifier:    p.notes,
		Navigator:   p.nav,
		Confirmer:   confirmer,
		Previews:    c.Previews,
		ListingPath: config.Config.Api.ListingPath,
	})
	return p
}

// applyForm copies the posted edits onto a freshly loaded editor.
func (p *forumEditPage) applyForm(c *RequestContext, form url.Values) {
	if _, ok := form["title"]; ok {
		p.ed.ChangeTitle(form.Get("title"))
	}
	if _, ok := form["description"]; ok {
		p.ed.ChangeDescription(form.Get("description"))
	}
	if previewID := form.Get("preview_id"); previewID != "" {
		err := p.ed.UsePreview(c, previewID)
		if errors.Is(err, preview.ErrNotFound) {
			p.notes.fail(msgPreviewExpired)
		} else if err != nil {
			c.Logger.Error().Err(err).Str("preview", previewID).Msg("Failed to reuse preview")
			p.notes.fail(msgPreviewFailed)
		}
	}
}

type ForumEditData struct {
	templates.BaseData
	Editor templates.ForumEditor
}

func (p *forumEditPage) templateData(c *RequestContext) ForumEditData {
	v := p.ed.View()

	baseData := getBaseData(c, "Edit forum", []templates.Breadcrumb{
		{Name: "Forums", Url: stemurl.BuildForumListing()},
		{Name: "Edit", Url: ""},
	})
	baseData.Notices = append(baseData.Notices, p.notes.notices...)

	return ForumEditData{
		BaseData: baseData,
		Editor: templates.ForumEditor{
			ID:          p.id,
			Title:       v.Title,
			Description: v.Description,
			PreviewUrl:  v.PreviewURL,
			PreviewID:   v.PreviewID,
			Loading:     v.Loading,
			Loaded:      v.Phase == viewstate.Loaded,

			SubmitUrl:      stemurl.BuildForumEdit(p.id),
			PreviewPostUrl: stemurl.BuildForumEditPreview(p.id),
			CancelUrl:      stemurl.BuildForumEditCancel(p.id),
		},
	}
}

func (p *forumEditPage) render(c *RequestContext) ResponseData {
	var res ResponseData
	res.MustWriteTemplate("forum_edit.html", p.templateData(c))
	return res
}

func (p *forumEditPage) redirect(c *RequestContext) ResponseData {
	res := c.Redirect(p.nav.dest, http.StatusSeeOther)
	for _, n := range p.notes.notices {
		res.AddFutureNotice(n.Class, n.Content)
	}
	return res
}

func forumIDParam(c *RequestContext) (string, bool) {
	id, err := url.PathUnescape(c.PathParams["id"])
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func ForumEdit(c *RequestContext) ResponseData {
	id, ok := forumIDParam(c)
	if !ok {
		return FourOhFour(c)
	}

	p := newForumEditPage(c, id, nil)
	defer p.ed.Close(c)

	p.ed.Load(c, id)
	return p.render(c)
}

// ForumEditPreview stages a newly chosen image and shows it. The preview
// outlives this request so the next submit can pick it up by id.
func ForumEditPreview(c *RequestContext) ResponseData {
	id, ok := forumIDParam(c)
	if !ok {
		return FourOhFour(c)
	}

	if err := c.Req.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return c.ErrorResponse(http.StatusRequestEntityTooLarge, NewSafeError(err, msgPreviewTooLarge))
		}
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "request must contain multipart form data"))
	}

	p := newForumEditPage(c, id, nil)
	defer p.ed.Close(c)

	if err := p.ed.Load(c, id); err != nil {
		return p.render(c)
	}
	p.applyForm(c, c.Req.PostForm)

	file, header, err := c.Req.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		p.ed.SelectFile(c, nil)
	case err != nil:
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "could not read the uploaded file"))
	default:
		defer file.Close()
		upload, err := preview.ReadUpload(header.Filename, file, config.Config.Previews.MaxSize)
		if err == nil {
			err = p.ed.SelectFile(c, &upload)
		}
		if err != nil {
			msg := previewErrorMessage(err)
			if msg == msgPreviewFailed {
				c.Logger.Error().Err(err).Msg("Failed to stage preview")
			}
			p.notes.fail(msg)
		} else if !p.ed.View().PreviewIsImage {
			p.notes.warn(msgPreviewNotImage)
		}
	}

	p.ed.Release()
	return p.render(c)
}

func previewErrorMessage(err error) string {
	switch {
	case errors.Is(err, preview.ErrTooLarge):
		return msgPreviewTooLarge
	default:
		return msgPreviewFailed
	}
}

// ForumEditSubmit saves the posted edits. On success it redirects to the
// listing; otherwise the editor is shown again with the edits intact.
func ForumEditSubmit(c *RequestContext) ResponseData {
	id, ok := forumIDParam(c)
	if !ok {
		return FourOhFour(c)
	}

	form, err := c.GetFormValues()
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "request must contain form data"))
	}

	p := newForumEditPage(c, id, nil)
	defer p.ed.Close(c)

	if err := p.ed.Load(c, id); err != nil {
		return p.render(c)
	}
	p.applyForm(c, form)

	p.ed.Submit(c)
	if p.nav.navigated {
		return p.redirect(c)
	}

	p.ed.Release()
	return p.render(c)
}

type ForumCancelData struct {
	templates.BaseData
	Prompt    templates.ConfirmPrompt
	Editor    templates.ForumEditor
	CancelUrl string
}

// ForumEditCancel asks for confirmation before leaving the editor. Only an
// explicit "yes" leaves; anything else returns to the editor as it was.
func ForumEditCancel(c *RequestContext) ResponseData {
	id, ok := forumIDParam(c)
	if !ok {
		return FourOhFour(c)
	}

	form, err := c.GetFormValues()
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "request must contain form data"))
	}

	answer := form.Get("answer")
	if answer == "" {
		prompt := editor.CancelPrompt
		var res ResponseData
		res.MustWriteTemplate("forum_cancel.html", ForumCancelData{
			BaseData: getBaseDataAutocrumb(c, prompt.Title),
			Prompt: templates.ConfirmPrompt{
				Title:       prompt.Title,
				Text:        prompt.Text,
				ConfirmText: prompt.ConfirmText,
				CancelText:  prompt.CancelText,
			},
			Editor: templates.ForumEditor{
				ID:          id,
				Title:       form.Get("title"),
				Description: form.Get("description"),
				PreviewID:   form.Get("preview_id"),
			},
			CancelUrl: stemurl.BuildForumEditCancel(id),
		})
		return res
	}

	p := newForumEditPage(c, id, formConfirmer{answer: answer == "yes"})
	defer p.ed.Close(c)

	navigated, err := p.ed.Cancel(c)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to cancel forum edit"))
	}
	if navigated {
		if previewID := form.Get("preview_id"); previewID != "" {
			if err := c.Previews.Revoke(c, previewID); err != nil && !errors.Is(err, preview.ErrNotFound) {
				c.Logger.Warn().Err(err).Str("preview", previewID).Msg("Failed to revoke preview")
			}
		}
		return p.redirect(c)
	}

	if err := p.ed.Load(c, id); err == nil {
		p.applyForm(c, form)
	}
	p.ed.Release()
	return p.render(c)
}
