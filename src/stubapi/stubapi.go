// Package stubapi is an in-memory stand-in for the STEM backend. It serves the
// forum, upload, article and lesson endpoints under /api/ and is seeded with
// filler text, for local development and tests.
package stubapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const Prefix = "/api/"

const maxUploadSize = 32 << 20

type Article struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

type upload struct {
	contentType string
	data        []byte
}

type Server struct {
	// Token, if set, must be sent as a bearer token to every endpoint except
	// upload.
	Token string

	// BareArticlePages makes paged article listings a bare array with no
	// count. Paging past the end then gives an empty array instead of 404.
	BareArticlePages bool

	mu       sync.Mutex
	forums   map[string]stemapi.Forum
	lessons  map[string]stemapi.Lesson
	articles []Article
	uploads  map[string]upload
	failures map[string]int
	requests []string
}

func New() *Server {
	return &Server{
		forums:   map[string]stemapi.Forum{},
		lessons:  map[string]stemapi.Lesson{},
		uploads:  map[string]upload{},
		failures: map[string]int{},
	}
}

var sampleVideos = []string{
	"https://www.youtube.com/watch?v=WUvTyaaNkzM",
	"https://youtu.be/fNk_zzaMoSs",
	"https://m.youtube.com/watch?v=aircAruvnKk&t=42",
	"https://vimeo.com/76979871",
}

// Seed fills the server with numbered forums, lessons and articles made of
// filler text. Titles and descriptions carry markup, as the real backend's do.
func (s *Server) Seed(numForums, numLessons, numArticles int) {
	for i := 1; i <= numForums; i++ {
		s.AddForum(stemapi.Forum{
			ID:          stemapi.EntityID{Value: strconv.Itoa(i), Numeric: true},
			Title:       "<p>" + lorem.Sentence(2, 6) + "</p>",
			Description: "<p>" + lorem.Paragraph(1, 3) + "</p>",
			Extra: map[string]json.RawMessage{
				"category": json.RawMessage(strconv.Itoa(i%3 + 1)),
			},
		})
	}

	for i := 1; i <= numLessons; i++ {
		lesson := stemapi.Lesson{
			ID:    stemapi.EntityID{Value: strconv.Itoa(i), Numeric: true},
			Title: lorem.Sentence(2, 5),
		}
		for j := 1; j <= 3; j++ {
			section := stemapi.Section{
				ID:    stemapi.EntityID{Value: strconv.Itoa(i*10 + j), Numeric: true},
				Title: lorem.Sentence(1, 4),
			}
			for k, video := range sampleVideos {
				section.Contents = append(section.Contents, stemapi.Content{
					ID:         stemapi.EntityID{Value: strconv.Itoa(i*100 + j*10 + k), Numeric: true},
					VideoURL:   video,
					VideoTitle: lorem.Sentence(2, 6),
				})
			}
			lesson.Sections = append(lesson.Sections, section)
		}
		s.AddLesson(lesson)
	}

	for i := 1; i <= numArticles; i++ {
		s.AddArticle(Article{
			ID:          i,
			Title:       lorem.Sentence(3, 8),
			Description: "<p>" + lorem.Paragraph(2, 4) + "</p>",
		})
	}
}

func (s *Server) AddForum(f stemapi.Forum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forums[f.ID.String()] = f
}

func (s *Server) Forum(id string) (stemapi.Forum, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forums[id]
	return f, ok
}

func (s *Server) AddLesson(l stemapi.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID.String()] = l
}

func (s *Server) AddArticle(a Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, a)
}

func (s *Server) NumUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// Requests lists the "METHOD path" of every request served, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// FailWith makes every request matching prefix answer with status. prefix is
// matched against the method and the path under /api/, as in "PUT forums/".
// A status of 0 clears it.
func (s *Server) FailWith(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, prefix)
	} else {
		s.failures[prefix] = status
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/forums/{$}", s.authed(s.listForums))
	mux.HandleFunc("GET /api/forums/{id}/{$}", s.authed(s.getForum))
	mux.HandleFunc("PUT /api/forums/{id}/{$}", s.authed(s.putForum))
	mux.HandleFunc("POST /api/upload/{$}", s.upload)
	mux.HandleFunc("GET /api/media/{name}", s.media)
	mux.HandleFunc("GET /api/articles/{$}", s.authed(s.listArticles))
	mux.HandleFunc("GET /api/lessons/{id}/{$}", s.authed(s.getLesson))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := r.Method + " " + strings.TrimPrefix(r.URL.Path, Prefix)

		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		status := 0
		for prefix, st := range s.failures {
			if strings.HasPrefix(rel, prefix) {
				status = st
			}
		}
		s.mu.Unlock()

		logging.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("stub api request")
		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		h(w, r)
	}
}

func (s *Server) listForums(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	forums := make([]stemapi.Forum, 0, len(s.forums))
	for _, f := range s.forums {
		forums = append(forums, f)
	}
	s.mu.Unlock()

	sort.Slice(forums, func(i, j int) bool {
		return lessID(forums[i].ID.String(), forums[j].ID.String())
	})
	writeJSON(w, http.StatusOK, forums)
}

func (s *Server) getForum(w http.ResponseWriter, r *http.Request) {
	f, ok := s.Forum(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// putForum replaces the forum wholesale, as the real backend does.
func (s *Server) putForum(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var f stemapi.Forum
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	existing, ok := s.forums[id]
	if ok {
		f.ID = existing.ID
		s.forums[id] = f
	}
	s.mu.Unlock()

	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No file was submitted."})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	name := uuid.New().String() + "-" + path.Base(header.Filename)
	s.mu.Lock()
	s.uploads[name] = upload{contentType: mimetype.Detect(data).String(), data: data}
	s.mu.Unlock()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	writeJSON(w, http.StatusCreated, stemapi.UploadResult{
		URL: fmt.Sprintf("%s://%s%smedia/%s", scheme, r.Host, Prefix, name),
	})
}

func (s *Server) media(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.uploads[r.PathValue("name")]
	s.mu.Unlock()

	if !ok {
		writeNotFound(w)
		return
	}
	w.Header().Set("Content-Type", u.contentType)
	w.Write(u.data)
}

// listArticles pages only when asked to; otherwise it sends everything as a
// bare array.
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	articles := append([]Article(nil), s.articles...)
	s.mu.Unlock()

	q := r.URL.Query()
	if q.Get("page") == "" && q.Get("page_size") == "" {
		writeJSON(w, http.StatusOK, articles)
		return
	}

	pageSize, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		writeNotFound(w)
		return
	}

	start := (page - 1) * pageSize
	if s.BareArticlePages {
		start = min(start, len(articles))
		writeJSON(w, http.StatusOK, articles[start:min(start+pageSize, len(articles))])
		return
	}
	if start > len(articles) || (start == len(articles) && page > 1) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Invalid page."})
		return
	}
	end := start + pageSize
	if end > len(articles) {
		end = len(articles)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(articles),
		"results": articles[start:end],
	})
}

func (s *Server) getLesson(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	l, ok := s.lessons[r.PathValue("id")]
	s.mu.Unlock()

	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to write stub api response")
	}
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func lessID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}
