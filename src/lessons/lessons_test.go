package lessons

import (
	"context"
	"errors"
	"sync"
	"testing"

	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/viewstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeID(t *testing.T) {
	id, err := DecodeID("math%2012")
	require.NoError(t, err)
	assert.Equal(t, "math 12", id)

	id, err = DecodeID("42")
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	_, err = DecodeID("bad%zz")
	assert.Error(t, err)
}

func TestYoutubeID(t *testing.T) {
	matches := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":             "dQw4w9WgXcQ",
		"https://youtube.com/watch?v=abc123&t=30":                 "abc123",
		"https://m.youtube.com/watch?feature=share&v=abc_-1":      "abc_-1",
		"https://music.youtube.com/watch?v=abc123":                "abc123",
		"https://www.youtube.com/embed?v=abc123":                  "abc123",
		"https://youtu.be/dQw4w9WgXcQ":                            "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=xyz":                     "dQw4w9WgXcQ",
		"  https://www.youtube.com/watch?v=dQw4w9WgXcQ\n":         "dQw4w9WgXcQ",
		`<a href="https://www.youtube.com/watch?v=dQw4w9WgXcQ">x`: "dQw4w9WgXcQ",
	}
	for in, want := range matches {
		got, ok := YoutubeID(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{
		"",
		"not a url",
		"https://vimeo.com/12345",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/channel/UC123",
		"https://notyoutube.com/watch?v=abc",
		"https://youtube.com.evil.example/watch?v=abc",
		"https://youtu.be/",
	} {
		_, ok := YoutubeID(in)
		assert.False(t, ok, in)
	}
}

func TestProject(t *testing.T) {
	lesson := stemapi.Lesson{
		Title: "Limits",
		Sections: []stemapi.Section{
			{Title: "Intro", Contents: []stemapi.Content{
				{ID: stemapi.StringID("c1"), VideoURL: "https://www.youtube.com/watch?v=AAAAAAAAAAA", VideoTitle: "Welcome"},
				{ID: stemapi.StringID("c2"), VideoURL: "https://vimeo.com/1"},
				{ID: stemapi.StringID("c3")},
			}},
			{Title: "", Contents: []stemapi.Content{
				{ID: stemapi.StringID("c4"), VideoURL: "https://youtu.be/BBBBBBBBBBB"},
			}},
			{Title: "Empty"},
		},
	}

	page := Project(lesson)
	assert.Equal(t, "Limits", page.Title)
	assert.Equal(t, []string{"Intro", NoTitle, "Empty"}, page.Sections)
	assert.Equal(t, []Video{
		{ContentID: "c1", EmbedURL: "https://www.youtube.com/embed/AAAAAAAAAAA", Title: "Welcome"},
		{ContentID: "c4", EmbedURL: "https://www.youtube.com/embed/BBBBBBBBBBB", Title: NoTitle},
	}, page.Videos)

	assert.NotPanics(t, func() {
		empty := Project(stemapi.Lesson{})
		assert.Empty(t, empty.Videos)
	})
}

type fakeAPI struct {
	mu     sync.Mutex
	calls  []string
	lesson stemapi.Lesson
	err    error
}

func (f *fakeAPI) GetLesson(ctx context.Context, id string) (stemapi.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return f.lesson, f.err
}

func TestViewerFetchesOncePerID(t *testing.T) {
	api := &fakeAPI{lesson: stemapi.Lesson{Title: "Limits"}}
	v := NewViewer(api)
	ctx := context.Background()

	s, err := v.Show(ctx, "math%2012")
	require.NoError(t, err)
	lesson, ok := s.Value()
	require.True(t, ok)
	assert.Equal(t, "Limits", lesson.Title)

	_, err = v.Show(ctx, "math%2012")
	require.NoError(t, err)
	assert.Equal(t, []string{"math 12"}, api.calls)

	_, err = v.Show(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"math 12", "other"}, api.calls)
}

func TestViewerError(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	v := NewViewer(api)
	ctx := context.Background()

	s, err := v.Show(ctx, "7")
	assert.Error(t, err)
	assert.Equal(t, viewstate.Errored, s.Phase())
	msg, _ := s.Message()
	assert.Equal(t, MsgFetchFailed, msg)

	s, err = v.Show(ctx, "7")
	assert.NoError(t, err, "no automatic retry")
	assert.Equal(t, viewstate.Errored, s.Phase())
	assert.Len(t, api.calls, 1)
}
