package apitools

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.automatex.dev/stem/stemweb/src/editor"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/stubapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stub(t *testing.T) (*stubapi.Server, *stemapi.Client) {
	t.Helper()
	s := stubapi.New()
	s.Seed(2, 1, 12)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, stemapi.New(srv.URL + stubapi.Prefix)
}

func TestShowForumStripsMarkup(t *testing.T) {
	s, c := stub(t)
	s.AddForum(stemapi.Forum{
		ID:          stemapi.EntityID{Value: "7", Numeric: true},
		Title:       "<h1>Physics</h1>",
		Description: "<p>Forces &amp; motion</p>",
	})

	var out bytes.Buffer
	require.NoError(t, showForum(context.Background(), c, "7", &out))
	assert.Contains(t, out.String(), "Title:       Physics\n")
	assert.Contains(t, out.String(), "Forces &amp; motion")
	assert.NotContains(t, out.String(), "<p>")
}

func ptr(s string) *string { return &s }

func TestEditForumWithYes(t *testing.T) {
	s, c := stub(t)

	var out bytes.Buffer
	err := editForum(context.Background(), c, EditOptions{ID: "1", Title: ptr("Chemistry"), Yes: true}, strings.NewReader(""), &out)
	require.NoError(t, err)

	forum, _ := s.Forum("1")
	assert.Equal(t, "Chemistry", forum.Title)
	assert.NotContains(t, forum.Description, "<p>")
	assert.Contains(t, out.String(), editor.MsgUpdated)
}

func TestEditForumDeclineThenDiscard(t *testing.T) {
	s, c := stub(t)
	before, _ := s.Forum("1")

	var out bytes.Buffer
	err := editForum(context.Background(), c, EditOptions{ID: "1", Title: ptr("Nope")}, strings.NewReader("n\ny\n"), &out)
	require.NoError(t, err)

	after, _ := s.Forum("1")
	assert.Equal(t, before.Title, after.Title)
	assert.Contains(t, out.String(), editor.CancelPrompt.Text)
	assert.Contains(t, out.String(), "Discarded changes.")
}

func TestEditForumStayThenSave(t *testing.T) {
	s, c := stub(t)

	var out bytes.Buffer
	err := editForum(context.Background(), c, EditOptions{ID: "1", Description: ptr("Atoms")}, strings.NewReader("n\nn\nyes\n"), &out)
	require.NoError(t, err)

	after, _ := s.Forum("1")
	assert.Equal(t, "Atoms", after.Description)
}

func TestEditForumStdinClosed(t *testing.T) {
	_, c := stub(t)

	err := editForum(context.Background(), c, EditOptions{ID: "1"}, strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, io.EOF)
}

func TestEditForumWithImage(t *testing.T) {
	s, c := stub(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.gif")
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
	require.NoError(t, os.WriteFile(path, gif, 0o644))

	err := editForum(context.Background(), c, EditOptions{ID: "2", ImagePath: path, Yes: true}, strings.NewReader(""), io.Discard)
	require.NoError(t, err)

	forum, _ := s.Forum("2")
	assert.Contains(t, forum.Image, "pixel.gif")
	assert.Equal(t, 1, s.NumUploads())
}

func TestEditForumWithNonImage(t *testing.T) {
	s, c := stub(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	var out bytes.Buffer
	err := editForum(context.Background(), c, EditOptions{ID: "2", ImagePath: path, Yes: true}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "does not look like an image")

	forum, _ := s.Forum("2")
	assert.Contains(t, forum.Image, "notes.txt")
}

func TestShowLesson(t *testing.T) {
	_, c := stub(t)

	var out bytes.Buffer
	require.NoError(t, showLesson(context.Background(), c, "1", &out))
	assert.Contains(t, out.String(), "https://www.youtube.com/embed/WUvTyaaNkzM")
	assert.NotContains(t, out.String(), "vimeo")
}

func TestShowMissingLesson(t *testing.T) {
	_, c := stub(t)

	err := showLesson(context.Background(), c, "99", io.Discard)
	assert.EqualError(t, err, "Failed to load lesson. Please try again.")
}

func TestListArticles(t *testing.T) {
	_, c := stub(t)

	var out bytes.Buffer
	require.NoError(t, listArticles(context.Background(), c, 10, 1, &out))
	assert.Contains(t, out.String(), "[1] ")
	assert.Contains(t, out.String(), "12 of 12 articles")
}
