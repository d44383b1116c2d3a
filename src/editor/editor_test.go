package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/viewstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu sync.Mutex

	forum     stemapi.Forum
	getErr    error
	uploadErr error
	updateErr error
	uploadURL string

	getBlock chan struct{}
	putBlock chan struct{}

	gets      []string
	uploads   []string
	uploaded  [][]byte
	updates   []stemapi.Forum
	updateIDs []string
}

func (f *fakeAPI) GetForum(ctx context.Context, id string) (stemapi.Forum, error) {
	if f.getBlock != nil {
		<-f.getBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, id)
	return f.forum, f.getErr
}

func (f *fakeAPI) UploadFile(ctx context.Context, filename string, r io.Reader) (stemapi.UploadResult, error) {
	b, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filename)
	f.uploaded = append(f.uploaded, b)
	return stemapi.UploadResult{URL: f.uploadURL}, f.uploadErr
}

func (f *fakeAPI) UpdateForum(ctx context.Context, id string, forum stemapi.Forum) error {
	if f.putBlock != nil {
		<-f.putBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateIDs = append(f.updateIDs, id)
	f.updates = append(f.updates, forum)
	return f.updateErr
}

type notice struct {
	Level   Level
	Title   string
	Message string
}

type recorder struct {
	mu        sync.Mutex
	notices   []notice
	navigated []string
	answer    bool
	answerErr error
	prompts   []Prompt
}

func (r *recorder) Notify(level Level, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{level, title, message})
}

func (r *recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigated = append(r.navigated, path)
}

func (r *recorder) Confirm(ctx context.Context, p Prompt) (bool, error) {
	r.prompts = append(r.prompts, p)
	return r.answer, r.answerErr
}

func sampleForum() stemapi.Forum {
	return stemapi.Forum{
		ID:          stemapi.EntityID{Value: "5", Numeric: true},
		Title:       "<p>Calc</p>",
		Description: "<b>Intro</b>",
		Image:       "",
		Extra:       map[string]json.RawMessage{},
	}
}

func pngUpload(t *testing.T, name string) *preview.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return &preview.Upload{Filename: name, Data: buf.Bytes()}
}

func setup(api *fakeAPI) (*ForumEditor, *recorder, *preview.MemoryStore) {
	rec := &recorder{}
	store := preview.NewMemoryStore(func(id string) string { return "/preview/" + id }, time.Hour, 1<<20)
	e := New(Deps{
		API:         api,
		Notifier:    rec,
		Navigator:   rec,
		Confirmer:   rec,
		Previews:    store,
		ListingPath: "/getforum",
	})
	return e, rec, store
}

func TestLoadStripsMarkup(t *testing.T) {
	api := &fakeAPI{forum: sampleForum()}
	e, rec, _ := setup(api)

	require.NoError(t, e.Load(context.Background(), "5"))

	v := e.View()
	assert.Equal(t, "Calc", v.Title)
	assert.Equal(t, "Intro", v.Description)
	assert.Equal(t, "", v.PreviewURL)
	assert.False(t, v.Loading)
	assert.Equal(t, viewstate.Loaded, v.Phase)
	assert.Empty(t, rec.notices)
	assert.Equal(t, []string{"5"}, api.gets)
}

func TestLoadSetsPreviewFromImage(t *testing.T) {
	forum := sampleForum()
	forum.Image = "https://cdn/x.png"
	e, _, _ := setup(&fakeAPI{forum: forum})

	require.NoError(t, e.Load(context.Background(), "5"))
	assert.Equal(t, "https://cdn/x.png", e.View().PreviewURL)
}

func TestLoadFailure(t *testing.T) {
	api := &fakeAPI{getErr: &stemapi.HTTPError{StatusCode: 404}}
	e, rec, _ := setup(api)

	assert.Error(t, e.Load(context.Background(), "404"))

	v := e.View()
	assert.Equal(t, "", v.Title)
	assert.Equal(t, "", v.Description)
	assert.Equal(t, "", v.Image)
	assert.False(t, v.Loading)
	assert.Equal(t, viewstate.Errored, v.Phase)
	assert.Equal(t, []notice{{LevelError, TitleError, MsgFetchFailed}}, rec.notices)
}

func TestLoadingFlagDuringFetch(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), getBlock: make(chan struct{})}
	e, _, _ := setup(api)

	done := make(chan error)
	go func() { done <- e.Load(context.Background(), "5") }()

	assert.Eventually(t, func() bool { return e.View().Loading }, time.Second, time.Millisecond)
	close(api.getBlock)
	require.NoError(t, <-done)
	assert.False(t, e.View().Loading)
}

func TestSubmitWithoutFile(t *testing.T) {
	forum := sampleForum()
	forum.Image = "https://cdn/old.png"
	forum.Extra["category"] = []byte(`3`)
	api := &fakeAPI{forum: forum}
	e, rec, _ := setup(api)
	ctx := context.Background()

	require.NoError(t, e.Load(ctx, "5"))
	e.ChangeTitle("Calculus")
	require.NoError(t, e.Submit(ctx))

	assert.Empty(t, api.uploads)
	require.Len(t, api.updates, 1)
	assert.Equal(t, "5", api.updateIDs[0])
	sent := api.updates[0]
	assert.Equal(t, "Calculus", sent.Title)
	assert.Equal(t, "Intro", sent.Description)
	assert.Equal(t, "https://cdn/old.png", sent.Image)
	assert.Equal(t, []byte(`3`), []byte(sent.Extra["category"]))
	assert.Equal(t, []notice{{LevelSuccess, TitleSuccess, MsgUpdated}}, rec.notices)
	assert.Equal(t, []string{"/getforum"}, rec.navigated)
	assert.False(t, e.View().Loading)
}

func TestSubmitWithFile(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), uploadURL: "https://cdn/new.png"}
	e, rec, store := setup(api)
	ctx := context.Background()

	require.NoError(t, e.Load(ctx, "5"))
	upload := pngUpload(t, "new.png")
	require.NoError(t, e.SelectFile(ctx, upload))

	v := e.View()
	require.NotEmpty(t, v.PreviewID)
	assert.Equal(t, "/preview/"+v.PreviewID, v.PreviewURL)
	assert.Empty(t, api.uploads, "selecting a file makes no backend call")

	require.NoError(t, e.Submit(ctx))
	assert.Equal(t, []string{"new.png"}, api.uploads)
	assert.Equal(t, upload.Data, api.uploaded[0])
	assert.Equal(t, "https://cdn/new.png", api.updates[0].Image)
	assert.Equal(t, []string{"/getforum"}, rec.navigated)

	e.Close(ctx)
	_, err := store.Get(ctx, v.PreviewID)
	assert.ErrorIs(t, err, preview.ErrNotFound)
}

func TestSubmitUploadFailure(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), uploadErr: &stemapi.HTTPError{StatusCode: 500}}
	e, rec, _ := setup(api)
	ctx := context.Background()

	require.NoError(t, e.Load(ctx, "5"))
	require.NoError(t, e.SelectFile(ctx, pngUpload(t, "a.png")))

	assert.Error(t, e.Submit(ctx))
	assert.Empty(t, api.updates, "update is never attempted after a failed upload")
	assert.Equal(t, []notice{{LevelError, TitleError, MsgUploadFailed}}, rec.notices)
	assert.Empty(t, rec.navigated)
	assert.False(t, e.View().Loading)
}

func TestSubmitUpdateFailure(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), updateErr: &stemapi.HTTPError{StatusCode: 400}}
	e, rec, _ := setup(api)
	ctx := context.Background()

	require.NoError(t, e.Load(ctx, "5"))
	assert.Error(t, e.Submit(ctx))
	assert.Equal(t, []notice{{LevelError, TitleError, MsgUpdateFailed}}, rec.notices)
	assert.Empty(t, rec.navigated)
	assert.False(t, e.View().Loading)
	assert.Equal(t, "Calc", e.View().Title, "form is left as it was")
}

func TestSubmitBeforeLoad(t *testing.T) {
	api := &fakeAPI{}
	e, rec, _ := setup(api)

	assert.ErrorIs(t, e.Submit(context.Background()), ErrNotLoaded)
	assert.Empty(t, api.updates)
	assert.Equal(t, []notice{{LevelError, TitleError, MsgUpdateFailed}}, rec.notices)
}

func TestDoubleSubmit(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), putBlock: make(chan struct{})}
	e, _, _ := setup(api)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx, "5"))

	first := make(chan error)
	go func() { first <- e.Submit(ctx) }()
	assert.Eventually(t, func() bool { return e.View().Loading }, time.Second, time.Millisecond)

	assert.ErrorIs(t, e.Submit(ctx), ErrBusy)
	close(api.putBlock)
	require.NoError(t, <-first)
	assert.Len(t, api.updates, 1)
}

func TestSelectNothingKeepsPreview(t *testing.T) {
	api := &fakeAPI{forum: sampleForum()}
	e, _, _ := setup(api)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx, "5"))

	require.NoError(t, e.SelectFile(ctx, pngUpload(t, "a.png")))
	url := e.View().PreviewURL

	require.NoError(t, e.SelectFile(ctx, nil))
	v := e.View()
	assert.Empty(t, v.PreviewID)
	assert.Equal(t, url, v.PreviewURL)

	require.NoError(t, e.Submit(ctx))
	assert.Empty(t, api.uploads)
}

func TestReselectRevokesOldPreview(t *testing.T) {
	e, _, store := setup(&fakeAPI{forum: sampleForum()})
	ctx := context.Background()

	require.NoError(t, e.SelectFile(ctx, pngUpload(t, "a.png")))
	first := e.View().PreviewID
	require.NoError(t, e.SelectFile(ctx, pngUpload(t, "b.png")))

	_, err := store.Get(ctx, first)
	assert.ErrorIs(t, err, preview.ErrNotFound)
	_, err = store.Get(ctx, e.View().PreviewID)
	assert.NoError(t, err)
}

func TestSelectStagesAnyFile(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), uploadURL: "https://cdn/report.pdf"}
	e, _, _ := setup(api)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx, "5"))

	pdf := []byte("%PDF-1.4\n1 0 obj\n")
	require.NoError(t, e.SelectFile(ctx, &preview.Upload{Filename: "report.pdf", Data: pdf}))

	v := e.View()
	require.NotEmpty(t, v.PreviewID)
	assert.Equal(t, "/preview/"+v.PreviewID, v.PreviewURL)
	assert.False(t, v.PreviewIsImage)

	require.NoError(t, e.Submit(ctx))
	assert.Equal(t, [][]byte{pdf}, api.uploaded)
	assert.Equal(t, "https://cdn/report.pdf", api.updates[0].Image)
}

func TestSelectEmptyFile(t *testing.T) {
	e, _, _ := setup(&fakeAPI{forum: sampleForum()})
	require.NoError(t, e.SelectFile(context.Background(), &preview.Upload{Filename: "blank.png"}))

	v := e.View()
	assert.NotEmpty(t, v.PreviewID)
	assert.NotEmpty(t, v.PreviewURL)
}

func TestReloadReplacesPreview(t *testing.T) {
	ctx := context.Background()

	t.Run("forum without image", func(t *testing.T) {
		withImage := sampleForum()
		withImage.Image = "https://cdn/x.png"
		api := &fakeAPI{forum: withImage}
		e, _, _ := setup(api)
		require.NoError(t, e.Load(ctx, "5"))

		api.forum = sampleForum()
		require.NoError(t, e.Load(ctx, "6"))
		assert.Equal(t, "", e.View().PreviewURL)
	})
	t.Run("failed load", func(t *testing.T) {
		withImage := sampleForum()
		withImage.Image = "https://cdn/x.png"
		api := &fakeAPI{forum: withImage}
		e, _, _ := setup(api)
		require.NoError(t, e.Load(ctx, "5"))

		api.getErr = &stemapi.NetworkError{Err: errors.New("connection refused")}
		assert.Error(t, e.Load(ctx, "5"))
		assert.Equal(t, "", e.View().PreviewURL)
	})
	t.Run("staged file wins", func(t *testing.T) {
		withImage := sampleForum()
		withImage.Image = "https://cdn/x.png"
		e, _, _ := setup(&fakeAPI{forum: withImage})
		require.NoError(t, e.SelectFile(ctx, pngUpload(t, "a.png")))
		require.NoError(t, e.Load(ctx, "5"))

		v := e.View()
		assert.Equal(t, "/preview/"+v.PreviewID, v.PreviewURL)
	})
}

func TestUsePreviewAcrossEditors(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), uploadURL: "https://cdn/new.png"}
	first, _, store := setup(api)
	ctx := context.Background()

	require.NoError(t, first.SelectFile(ctx, pngUpload(t, "a.png")))
	id := first.View().PreviewID
	first.Release()
	first.Close(ctx)

	rec := &recorder{}
	second := New(Deps{API: api, Notifier: rec, Navigator: rec, Confirmer: rec, Previews: store, ListingPath: "/getforum"})
	require.NoError(t, second.Load(ctx, "5"))
	require.NoError(t, second.UsePreview(ctx, id))
	require.NoError(t, second.Submit(ctx))
	assert.Equal(t, "https://cdn/new.png", api.updates[0].Image)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		e, rec, _ := setup(&fakeAPI{})
		rec.answer = true
		navigated, err := e.Cancel(ctx)
		require.NoError(t, err)
		assert.True(t, navigated)
		assert.Equal(t, []Prompt{CancelPrompt}, rec.prompts)
		assert.Equal(t, []string{"/getforum"}, rec.navigated)
	})
	t.Run("declined", func(t *testing.T) {
		api := &fakeAPI{forum: sampleForum()}
		e, rec, _ := setup(api)
		require.NoError(t, e.Load(ctx, "5"))
		e.ChangeTitle("draft")
		e.ChangeDescription("notes")
		require.NoError(t, e.SelectFile(ctx, pngUpload(t, "a.png")))
		before := e.View()

		navigated, err := e.Cancel(ctx)
		require.NoError(t, err)
		assert.False(t, navigated)
		assert.Empty(t, rec.navigated)
		assert.Equal(t, before, e.View())
		assert.Empty(t, rec.notices)
	})
	t.Run("dismissed with error", func(t *testing.T) {
		e, rec, _ := setup(&fakeAPI{})
		rec.answer = true
		rec.answerErr = errors.New("stdin closed")
		navigated, err := e.Cancel(ctx)
		assert.Error(t, err)
		assert.False(t, navigated)
		assert.Empty(t, rec.navigated)
	})
}

func TestCloseDiscardsInFlightLoad(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), getBlock: make(chan struct{})}
	e, rec, _ := setup(api)

	done := make(chan error)
	go func() { done <- e.Load(context.Background(), "5") }()
	assert.Eventually(t, func() bool { return e.View().Loading }, time.Second, time.Millisecond)

	e.Close(context.Background())
	close(api.getBlock)
	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, "", e.View().Title)
	assert.Empty(t, rec.notices)
}

func TestCloseDiscardsInFlightSubmit(t *testing.T) {
	api := &fakeAPI{forum: sampleForum(), putBlock: make(chan struct{})}
	e, rec, _ := setup(api)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx, "5"))

	done := make(chan error)
	go func() { done <- e.Submit(ctx) }()
	assert.Eventually(t, func() bool { return e.View().Loading }, time.Second, time.Millisecond)

	e.Close(ctx)
	close(api.putBlock)
	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Empty(t, rec.notices)
	assert.Empty(t, rec.navigated)
}
