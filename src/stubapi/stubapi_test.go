package stubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"git.automatex.dev/stem/stemweb/src/stemapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, s *Server) *stemapi.Client {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return stemapi.New(srv.URL+Prefix, stemapi.WithArticlePagination(true))
}

func TestSeededForums(t *testing.T) {
	s := New()
	s.Seed(3, 0, 0)
	c := newClient(t, s)

	forum, err := c.GetForum(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, stemapi.EntityID{Value: "2", Numeric: true}, forum.ID)
	assert.Contains(t, forum.Title, "<p>")
	assert.JSONEq(t, "3", string(forum.Extra["category"]))

	raw, err := c.ListForums(context.Background())
	require.NoError(t, err)
	var forums []stemapi.Forum
	require.NoError(t, json.Unmarshal(raw, &forums))
	require.Len(t, forums, 3)
	assert.Equal(t, "1", forums[0].ID.String())
	assert.Equal(t, "3", forums[2].ID.String())
}

func TestUpdateForumReplacesEntity(t *testing.T) {
	s := New()
	s.Seed(1, 0, 0)
	c := newClient(t, s)

	forum, err := c.GetForum(context.Background(), "1")
	require.NoError(t, err)
	forum.Title = "New title"
	forum.Image = "https://cdn.example/x.png"

	require.NoError(t, c.UpdateForum(context.Background(), "1", forum))

	stored, ok := s.Forum("1")
	require.True(t, ok)
	assert.Equal(t, "New title", stored.Title)
	assert.Equal(t, "https://cdn.example/x.png", stored.Image)
	assert.JSONEq(t, "2", string(stored.Extra["category"]))
}

func TestUpdateMissingForum(t *testing.T) {
	c := newClient(t, New())

	err := c.UpdateForum(context.Background(), "9", stemapi.Forum{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, stemapi.StatusCode(err))
}

func TestUploadAndFetchMedia(t *testing.T) {
	s := New()
	c := newClient(t, s)

	res, err := c.UploadFile(context.Background(), "cat.png", bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrest")))
	require.NoError(t, err)
	assert.Contains(t, res.URL, "/api/media/")
	assert.Contains(t, res.URL, "cat.png")
	assert.Equal(t, 1, s.NumUploads())

	got, err := http.Get(res.URL)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "image/png", got.Header.Get("Content-Type"))
}

func TestTokenRequired(t *testing.T) {
	s := New()
	s.Token = "secret"
	s.Seed(1, 0, 0)
	c := newClient(t, s)

	_, err := c.GetForum(context.Background(), "1")
	assert.Equal(t, http.StatusUnauthorized, stemapi.StatusCode(err))

	_, err = c.WithTokenSource(stemapi.StaticToken("secret")).GetForum(context.Background(), "1")
	assert.NoError(t, err)

	// Uploads never carry a token.
	_, err = c.UploadFile(context.Background(), "a.txt", bytes.NewReader([]byte("hi")))
	assert.NoError(t, err)
}

func TestArticlesPaging(t *testing.T) {
	s := New()
	s.Seed(0, 0, 25)

	t.Run("paged", func(t *testing.T) {
		c := newClient(t, s)
		page, err := c.ListArticles(context.Background(), stemapi.ArticlesQuery{PageSize: 10, Page: 3})
		require.NoError(t, err)

		var body struct {
			Count   int       `json:"count"`
			Results []Article `json:"results"`
		}
		require.NoError(t, json.Unmarshal(page, &body))
		assert.Equal(t, 25, body.Count)
		assert.Len(t, body.Results, 5)
		assert.Equal(t, 21, body.Results[0].ID)
	})

	t.Run("unpaged", func(t *testing.T) {
		srv := httptest.NewServer(s.Handler())
		defer srv.Close()
		c := stemapi.New(srv.URL + Prefix)

		page, err := c.ListArticles(context.Background(), stemapi.ArticlesQuery{PageSize: 10, Page: 3})
		require.NoError(t, err)

		var all []Article
		require.NoError(t, json.Unmarshal(page, &all))
		assert.Len(t, all, 25)
	})

	t.Run("bare pages", func(t *testing.T) {
		bare := New()
		bare.BareArticlePages = true
		bare.Seed(0, 0, 25)
		c := newClient(t, bare)

		page, err := c.ListArticles(context.Background(), stemapi.ArticlesQuery{PageSize: 10, Page: 3})
		require.NoError(t, err)
		var items []Article
		require.NoError(t, json.Unmarshal(page, &items))
		assert.Len(t, items, 5)

		page, err = c.ListArticles(context.Background(), stemapi.ArticlesQuery{PageSize: 10, Page: 4})
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(page))
	})

	t.Run("past the end", func(t *testing.T) {
		c := newClient(t, s)
		_, err := c.ListArticles(context.Background(), stemapi.ArticlesQuery{PageSize: 10, Page: 4})
		assert.Equal(t, http.StatusNotFound, stemapi.StatusCode(err))
	})
}

func TestSeededLesson(t *testing.T) {
	s := New()
	s.Seed(0, 1, 0)
	c := newClient(t, s)

	lesson, err := c.GetLesson(context.Background(), "1")
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.Title)
	require.Len(t, lesson.Sections, 3)
	assert.Len(t, lesson.Sections[0].Contents, len(sampleVideos))
}

func TestFailWith(t *testing.T) {
	s := New()
	s.Seed(1, 0, 0)
	c := newClient(t, s)

	s.FailWith("GET forums/", http.StatusInternalServerError)
	_, err := c.GetForum(context.Background(), "1")
	assert.Equal(t, http.StatusInternalServerError, stemapi.StatusCode(err))

	s.FailWith("GET forums/", 0)
	_, err = c.GetForum(context.Background(), "1")
	assert.NoError(t, err)

	assert.Equal(t, []string{"GET /api/forums/1/", "GET /api/forums/1/"}, s.Requests())
}
