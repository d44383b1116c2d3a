package website

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"git.automatex.dev/stem/stemweb/src/auth"
	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/oops"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(*error)
				var err error
				if ok {
					err = *maybeError
				} else if asErr, isErr := recovered.(error); isErr {
					err = oops.New(asErr, "Recovered from panic")
				} else {
					err = oops.New(nil, fmt.Sprintf("Recovered from panic with value: %v", recovered))
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

// withDeps hands the process-wide dependencies to each request, and gives the
// request a logger tagged with its route.
func withDeps(deps Deps) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Sessions = deps.Sessions
			c.Previews = deps.Previews
			c.Api = deps.API

			logger := c.Logger.With().Str("route", c.Route).Logger()
			c.Logger = &logger
			c.ctx = logging.AttachLoggerToContext(c.Logger, c.ctx)

			return h(c)
		}
	}
}

func trackRequestMetrics(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		start := time.Now()
		res := h(c)

		status := res.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		requestDuration.WithLabelValues(c.Route, c.Req.Method, strconv.Itoa(status)).Observe(elapsed.Seconds())
		c.Logger.Debug().
			Str("method", c.Req.Method).
			Str("path", c.Req.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("Served request")

		return res
	}
}

// loadSession looks up the session cookie and, when it names a live session,
// points the request's API client at that session's token.
func loadSession(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		var clearCookie bool

		if cookie, err := c.Req.Cookie(auth.SessionCookieName); err == nil {
			session, err := c.Sessions.Get(c, cookie.Value)
			if err == nil && !session.Expired(time.Now()) {
				c.CurrentSession = &session
			} else {
				if err != nil && !errors.Is(err, auth.ErrNoSession) {
					c.Logger.Error().Err(err).Msg("failed to load session")
				}
				clearCookie = true
			}
		}

		if c.Api != nil {
			c.Api = c.Api.WithTokenSource(auth.SessionToken{Session: c.CurrentSession})
		}

		res := h(c)
		if clearCookie {
			res.SetCookie(auth.DeleteSessionCookie)
		}
		return res
	}
}

const maxFormMemory = 32 << 20

func csrfMiddleware(h Handler) Handler {
	// CSRF mitigation actions per the OWASP cheat sheet:
	// https://cheatsheetseries.owasp.org/cheatsheets/Cross-Site_Request_Forgery_Prevention_Cheat_Sheet.html
	return func(c *RequestContext) ResponseData {
		if c.CurrentSession == nil {
			return h(c)
		}

		c.Req.ParseMultipartForm(maxFormMemory)
		csrfToken := c.Req.Form.Get(auth.CSRFFieldName)
		if !c.CurrentSession.CheckCSRF(csrfToken) {
			c.Logger.Warn().Str("session", c.CurrentSession.ID[:8]).Msg("failed CSRF validation - potential attack?")

			res := c.Redirect("/", http.StatusSeeOther)
			logoutUser(c, &res)

			return res
		}

		return h(c)
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
