// Package editor implements the forum edit workflow: load a forum, edit its
// text fields, optionally pick a new image, and save or abandon the changes.
package editor

import (
	"context"
	"errors"
	"io"
	"sync"

	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/richtext"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/viewstate"
)

const (
	MsgFetchFailed  = "Failed to fetch forum data. Please try again."
	MsgUploadFailed = "Failed to upload image. Please try again."
	MsgUpdated      = "Forum updated successfully."
	MsgUpdateFailed = "Failed to update forum data. Please try again."
	TitleError      = "Error"
	TitleSuccess    = "Success"
)

var CancelPrompt = Prompt{
	Title:       "Are you sure?",
	Text:        "Any unsaved changes will be lost!",
	ConfirmText: "Yes, close it!",
	CancelText:  "No, stay here",
}

var (
	ErrBusy      = errors.New("a save is already in progress")
	ErrNotLoaded = errors.New("forum has not been loaded")
	ErrClosed    = errors.New("editor is closed")
)

type API interface {
	GetForum(ctx context.Context, id string) (stemapi.Forum, error)
	UploadFile(ctx context.Context, filename string, r io.Reader) (stemapi.UploadResult, error)
	UpdateForum(ctx context.Context, id string, forum stemapi.Forum) error
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notifier interface {
	Notify(level Level, title, message string)
}

type Navigator interface {
	Navigate(path string)
}

type Prompt struct {
	Title       string
	Text        string
	ConfirmText string
	CancelText  string
}

type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

type PreviewStore interface {
	Put(ctx context.Context, u preview.Upload) (preview.Preview, error)
	Get(ctx context.Context, id string) (preview.Preview, error)
	Open(ctx context.Context, id string) (io.ReadCloser, preview.Preview, error)
	Revoke(ctx context.Context, id string) error
}

type Deps struct {
	API         API
	Notifier    Notifier
	Navigator   Navigator
	Confirmer   Confirmer
	Previews    PreviewStore
	ListingPath string
}

// View is a snapshot of the editor for rendering.
type View struct {
	ID          string
	Title       string
	Description string
	Image       string
	PreviewURL  string
	PreviewID   string
	// PreviewIsImage reports whether the staged file decoded as an image.
	PreviewIsImage bool
	Loading        bool
	Phase          viewstate.Phase
}

// ForumEditor is owned by a single caller. Its methods may still be called
// from multiple goroutines; state is guarded by a mutex and network calls are
// made without holding it.
type ForumEditor struct {
	deps Deps

	mu         sync.Mutex
	id         string
	loadSeq    int
	state      viewstate.State[stemapi.Forum]
	form       stemapi.Forum
	file       *preview.Preview
	ownPreview string
	previewURL string
	submitting bool
	closed     bool
}

func New(deps Deps) *ForumEditor {
	return &ForumEditor{deps: deps}
}

func (e *ForumEditor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		ID:          e.id,
		Title:       e.form.Title,
		Description: e.form.Description,
		Image:       e.form.Image,
		PreviewURL:  e.previewURL,
		Loading:     e.state.IsLoading() || e.submitting,
		Phase:       e.state.Phase(),
	}
	if e.file != nil {
		v.PreviewID = e.file.ID
		v.PreviewIsImage = e.file.IsImage
	}
	return v
}

// Load fetches the forum and replaces the editable copy with it, with markup
// stripped from the title and description.
func (e *ForumEditor) Load(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.id = id
	e.loadSeq++
	seq := e.loadSeq
	e.state.Begin()
	e.mu.Unlock()

	forum, err := e.deps.API.GetForum(ctx, id)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if seq != e.loadSeq {
		// A newer Load owns the state now.
		e.mu.Unlock()
		return err
	}
	if err != nil {
		e.form = stemapi.Forum{}
		e.previewURL = e.stagedURL()
		e.state.Fail(MsgFetchFailed)
		e.mu.Unlock()

		logging.ExtractLogger(ctx).Error().Err(err).Str("forum", id).Msg("Error fetching forum data")
		e.deps.Notifier.Notify(LevelError, TitleError, MsgFetchFailed)
		return err
	}

	forum.Title = richtext.StripTags(forum.Title)
	forum.Description = richtext.StripTags(forum.Description)
	e.form = forum
	e.previewURL = forum.Image
	if e.file != nil {
		e.previewURL = e.file.URL
	}
	e.state.Succeed(forum)
	e.mu.Unlock()
	return nil
}

func (e *ForumEditor) ChangeTitle(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.Title = s
}

func (e *ForumEditor) ChangeDescription(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.Description = s
}

// SelectFile stages a file for upload on the next Submit and points the
// preview at a local copy of it. Any file is staged, image or not. A nil
// upload clears the staged file but leaves the current preview showing.
func (e *ForumEditor) SelectFile(ctx context.Context, u *preview.Upload) error {
	if u == nil {
		e.mu.Lock()
		e.file = nil
		e.mu.Unlock()
		return nil
	}

	p, err := e.deps.Previews.Put(ctx, *u)
	if err != nil {
		return err
	}
	return e.attach(ctx, p)
}

// UsePreview stages a file that was selected earlier, possibly by another
// editor instance, by its preview id.
func (e *ForumEditor) UsePreview(ctx context.Context, previewID string) error {
	p, err := e.deps.Previews.Get(ctx, previewID)
	if err != nil {
		return err
	}
	return e.attach(ctx, p)
}

func (e *ForumEditor) attach(ctx context.Context, p preview.Preview) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.revoke(ctx, p.ID)
		return ErrClosed
	}
	old := e.ownPreview
	e.file = &p
	e.ownPreview = p.ID
	e.previewURL = p.URL
	e.mu.Unlock()

	if old != "" && old != p.ID {
		e.revoke(ctx, old)
	}
	return nil
}

// Submit uploads the staged file, if any, then replaces the forum with the
// edited copy. Only one Submit may run at a time.
func (e *ForumEditor) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.submitting {
		e.mu.Unlock()
		return ErrBusy
	}
	if _, ok := e.state.Value(); !ok {
		e.mu.Unlock()
		e.deps.Notifier.Notify(LevelError, TitleError, MsgUpdateFailed)
		return ErrNotLoaded
	}
	e.submitting = true
	id := e.id
	forum := e.form
	file := e.file
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
	}()

	logger := logging.ExtractLogger(ctx)

	imageURL := forum.Image
	if file != nil {
		url, err := e.upload(ctx, file.ID)
		if err != nil {
			logger.Error().Err(err).Str("forum", id).Msg("Error uploading image")
			if e.live() {
				e.deps.Notifier.Notify(LevelError, TitleError, MsgUploadFailed)
			}
			return err
		}
		imageURL = url
	}

	forum.Image = imageURL
	err := e.deps.API.UpdateForum(ctx, id, forum)
	if !e.live() {
		return ErrClosed
	}
	if err != nil {
		logger.Error().Err(err).Str("forum", id).Msg("Error updating forum data")
		e.deps.Notifier.Notify(LevelError, TitleError, MsgUpdateFailed)
		return err
	}

	e.mu.Lock()
	e.form.Image = imageURL
	e.file = nil
	e.mu.Unlock()

	e.deps.Notifier.Notify(LevelSuccess, TitleSuccess, MsgUpdated)
	e.deps.Navigator.Navigate(e.deps.ListingPath)
	return nil
}

func (e *ForumEditor) upload(ctx context.Context, previewID string) (string, error) {
	r, p, err := e.deps.Previews.Open(ctx, previewID)
	if err != nil {
		return "", err
	}
	defer r.Close()

	res, err := e.deps.API.UploadFile(ctx, p.Filename, r)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// Cancel asks for confirmation and navigates to the listing only on an
// explicit yes. It reports whether it navigated.
func (e *ForumEditor) Cancel(ctx context.Context) (bool, error) {
	ok, err := e.deps.Confirmer.Confirm(ctx, CancelPrompt)
	if err != nil || !ok || !e.live() {
		return false, err
	}
	e.deps.Navigator.Navigate(e.deps.ListingPath)
	return true, nil
}

// Close discards the results of any operation still in flight and revokes
// the local preview.
func (e *ForumEditor) Close(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	own := e.ownPreview
	e.ownPreview = ""
	e.file = nil
	e.mu.Unlock()

	if own != "" {
		e.revoke(ctx, own)
	}
}

// Release drops the editor's claim on its preview without revoking it, so a
// later request can pick it up with UsePreview.
func (e *ForumEditor) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ownPreview = ""
}

func (e *ForumEditor) stagedURL() string {
	if e.file != nil {
		return e.file.URL
	}
	return ""
}

func (e *ForumEditor) live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

func (e *ForumEditor) revoke(ctx context.Context, id string) {
	if err := e.deps.Previews.Revoke(ctx, id); err != nil {
		logging.ExtractLogger(ctx).Warn().Err(err).Str("preview", id).Msg("Failed to revoke preview")
	}
}
