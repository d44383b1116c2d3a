package stemapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/oops"
	"github.com/go-resty/resty/v2"
)

const UserAgent = "stemweb/1.0 (+https://stem.automatex.dev/)"

// A TokenSource supplies the bearer token for authenticated calls. An empty
// token means the Authorization header is left off.
type TokenSource interface {
	Token(ctx context.Context) string
}

type StaticToken string

func (t StaticToken) Token(context.Context) string {
	return string(t)
}

type Client struct {
	rc               *resty.Client
	tokens           TokenSource
	paginateArticles bool
}

type Option func(c *Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rc.SetTimeout(d)
	}
}

// WithArticlePagination attaches page_size and page to article listings.
func WithArticlePagination(enabled bool) Option {
	return func(c *Client) {
		c.paginateArticles = enabled
	}
}

func (c *Client) PaginatesArticles() bool {
	return c.paginateArticles
}

func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{})

	c := &Client{rc: rc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewFromConfig() *Client {
	return New(config.Config.Api.BaseUrl,
		WithTimeout(config.Config.Api.Timeout),
		WithArticlePagination(config.Config.Api.PaginateArticles),
	)
}

// WithTokenSource returns a copy of the client that authenticates with ts.
// The copy shares the underlying connection pool.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

func (c *Client) GetForum(ctx context.Context, id string) (Forum, error) {
	const name = "Get Forum"

	res, err := c.do(ctx, name, http.MethodGet, "forums/{id}/", c.authed(ctx).SetPathParam("id", id))
	if err != nil {
		return Forum{}, err
	}

	var forum Forum
	if err := decode(name, res, &forum); err != nil {
		return Forum{}, err
	}
	return forum, nil
}

func (c *Client) ListForums(ctx context.Context) (json.RawMessage, error) {
	const name = "List Forums"

	res, err := c.do(ctx, name, http.MethodGet, "forums/", c.authed(ctx))
	if err != nil {
		return nil, err
	}
	return rawJSON(name, res)
}

// UploadFile sends the file as the multipart field "file". The upload
// endpoint is called without credentials.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	const name = "Upload File"

	req := c.rc.R().SetContext(ctx).SetFileReader("file", filename, r)
	res, err := c.do(ctx, name, http.MethodPost, "upload/", req)
	if err != nil {
		return UploadResult{}, err
	}

	var result UploadResult
	if err := decode(name, res, &result); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// UpdateForum replaces the whole forum entity at id, including any fields it
// carried in Extra.
func (c *Client) UpdateForum(ctx context.Context, id string, forum Forum) error {
	const name = "Update Forum"

	if id == "" {
		return oops.New(nil, "cannot update a forum without an id")
	}
	body, err := json.Marshal(forum)
	if err != nil {
		return oops.New(err, "failed to encode forum %s", id)
	}

	req := c.authed(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	_, err = c.do(ctx, name, http.MethodPut, "forums/{id}/", req)
	return err
}

// ListArticles fetches one article listing. The query is only sent when
// article pagination is enabled on the client.
func (c *Client) ListArticles(ctx context.Context, q ArticlesQuery) (BlogPage, error) {
	const name = "List Articles"

	req := c.authed(ctx)
	if c.paginateArticles {
		if q.PageSize > 0 {
			req.SetQueryParam("page_size", strconv.Itoa(q.PageSize))
		}
		if q.Page > 0 {
			req.SetQueryParam("page", strconv.Itoa(q.Page))
		}
	}

	res, err := c.do(ctx, name, http.MethodGet, "articles/", req)
	if err != nil {
		return nil, err
	}
	return rawJSON(name, res)
}

// GetLesson fetches a lesson. id is the decoded identifier; it is escaped
// again when placed in the path.
func (c *Client) GetLesson(ctx context.Context, id string) (Lesson, error) {
	const name = "Get Lesson"

	res, err := c.do(ctx, name, http.MethodGet, "lessons/{id}/", c.authed(ctx).SetPathParam("id", id))
	if err != nil {
		return Lesson{}, err
	}

	var lesson Lesson
	if err := decode(name, res, &lesson); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

func (c *Client) authed(ctx context.Context) *resty.Request {
	req := c.rc.R().SetContext(ctx)
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.SetAuthToken(token)
		}
	}
	return req
}

func (c *Client) do(ctx context.Context, name, method, path string, req *resty.Request) (res *resty.Response, err error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(name, outcome(err)).Inc()
	}()

	res, err = req.Execute(method, path)
	if err != nil {
		return nil, oops.New(&NetworkError{Endpoint: name, Err: err}, "request to STEM backend failed")
	}
	if !res.IsSuccess() {
		logErrorResponse(ctx, name, res)
		return nil, oops.New(&HTTPError{
			Endpoint:   name,
			StatusCode: res.StatusCode(),
			Body:       res.String(),
		}, "received error from STEM backend")
	}
	return res, nil
}

func decode(name string, res *resty.Response, dest any) error {
	if err := json.Unmarshal(res.Body(), dest); err != nil {
		return oops.New(&ParseError{Endpoint: name, Err: err}, "failed to unmarshal STEM backend response")
	}
	return nil
}

func rawJSON(name string, res *resty.Response) (json.RawMessage, error) {
	body := res.Body()
	if !json.Valid(body) {
		return nil, oops.New(&ParseError{Endpoint: name, Err: fmt.Errorf("body is not valid JSON")}, "failed to read STEM backend response")
	}
	return json.RawMessage(body), nil
}

func logErrorResponse(ctx context.Context, name string, res *resty.Response) {
	logging.ExtractLogger(ctx).Error().
		Str("name", name).
		Str("url", res.Request.URL).
		Int("status", res.StatusCode()).
		Str("body", res.String()).
		Msg("error response from STEM backend")
}

type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logging.Error().Msgf(format, v...)
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logging.Warn().Msgf(format, v...)
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logging.Debug().Msgf(format, v...)
}
