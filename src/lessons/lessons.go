// Package lessons fetches a single lesson and projects it into what the
// lesson page shows: its title, section titles, and embeddable videos.
package lessons

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/oops"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/viewstate"
	"mvdan.cc/xurls/v2"
)

const NoTitle = "No Title"
const MsgFetchFailed = "Failed to load lesson. Please try again."

// DecodeID undoes the URL encoding of an identifier taken from a route. The
// API client encodes it again when building the request path.
func DecodeID(raw string) (string, error) {
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", oops.New(err, "invalid lesson id %q", raw)
	}
	return id, nil
}

type API interface {
	GetLesson(ctx context.Context, id string) (stemapi.Lesson, error)
}

// Viewer fetches a lesson at most once per identifier.
type Viewer struct {
	api API

	mu    sync.Mutex
	id    string
	hasID bool
	state viewstate.State[stemapi.Lesson]
}

func NewViewer(api API) *Viewer {
	return &Viewer{api: api}
}

func (v *Viewer) State() viewstate.State[stemapi.Lesson] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Show loads the lesson named by rawID unless it is already loaded, loading,
// or has failed for that same identifier. Failures are not retried.
func (v *Viewer) Show(ctx context.Context, rawID string) (viewstate.State[stemapi.Lesson], error) {
	id, err := DecodeID(rawID)
	if err != nil {
		return v.State(), err
	}

	v.mu.Lock()
	if v.hasID && v.id == id && v.state.Phase() != viewstate.Idle {
		s := v.state
		v.mu.Unlock()
		return s, nil
	}
	v.id, v.hasID = id, true
	v.state.Begin()
	v.mu.Unlock()

	lesson, err := v.api.GetLesson(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.id != id || !v.state.IsLoading() {
		return v.state, err
	}
	if err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Str("lesson", id).Msg("Error fetching lesson data")
		v.state.Fail(MsgFetchFailed)
		return v.state, err
	}
	v.state.Succeed(lesson)
	return v.state, nil
}

type Page struct {
	Title    string
	Sections []string
	Videos   []Video
}

type Video struct {
	ContentID string
	EmbedURL  string
	Title     string
}

// Project builds the page for a lesson. Contents without a recognized video
// link are left out.
func Project(lesson stemapi.Lesson) Page {
	page := Page{Title: lesson.Title}
	for _, section := range lesson.Sections {
		page.Sections = append(page.Sections, titleOrPlaceholder(section.Title))
	}
	for _, section := range lesson.Sections {
		for _, content := range section.Contents {
			vid, ok := YoutubeID(content.VideoURL)
			if !ok {
				continue
			}
			page.Videos = append(page.Videos, Video{
				ContentID: content.ID.String(),
				EmbedURL:  "https://www.youtube.com/embed/" + vid,
				Title:     titleOrPlaceholder(content.VideoTitle),
			})
		}
	}
	return page
}

func titleOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoTitle
	}
	return s
}

var reStrictURL = xurls.Strict()

var reVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// YoutubeID extracts the video id from a link on youtube.com or any of its
// subdomains, read from the v parameter, or from a youtu.be short link. The
// link may appear anywhere in raw.
func YoutubeID(raw string) (string, bool) {
	found := reStrictURL.FindString(raw)
	if found == "" {
		return "", false
	}
	u, err := url.Parse(found)
	if err != nil {
		return "", false
	}

	var vid string
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		vid = u.Query().Get("v")
	case host == "youtu.be":
		vid = strings.TrimPrefix(u.Path, "/")
	default:
		return "", false
	}

	if !reVideoID.MatchString(vid) {
		return "", false
	}
	return vid, true
}
