package website

import (
	"net/http"
	"strings"
	"time"

	"git.automatex.dev/stem/stemweb/src/auth"
	"git.automatex.dev/stem/stemweb/src/oops"
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
)

type LoginPageData struct {
	templates.BaseData
	SubmitUrl   string
	RedirectUrl string
}

func LoginPage(c *RequestContext) ResponseData {
	if c.CurrentSession != nil {
		return c.Redirect(safeRedirect(c.Req.URL.Query().Get("redirect")), http.StatusSeeOther)
	}

	var res ResponseData
	res.MustWriteTemplate("login.html", LoginPageData{
		BaseData:    getBaseDataAutocrumb(c, "Log in"),
		SubmitUrl:   stemurl.BuildLogin(),
		RedirectUrl: c.Req.URL.Query().Get("redirect"),
	})
	return res
}

// Login takes an access token issued by the backend and starts a session for
// it. The token itself never leaves the server again.
func Login(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "request must contain form data"))
	}

	redirect := form.Get("redirect")
	token := strings.TrimSpace(form.Get("access_token"))
	if token == "" {
		return showLoginWithFailure(c, redirect, "Please enter an access token.")
	}

	now := time.Now()
	session := auth.NewSession(token, now)
	if session.Expired(now) {
		return showLoginWithFailure(c, redirect, "That access token has already expired.")
	}

	if err := c.Sessions.Create(c, session); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to create session"))
	}

	res := c.Redirect(safeRedirect(redirect), http.StatusSeeOther)
	res.SetCookie(auth.NewSessionCookie(session))
	return res
}

func Logout(c *RequestContext) ResponseData {
	res := c.Redirect(stemurl.BuildHomepage(), http.StatusSeeOther)
	logoutUser(c, &res)
	return res
}

func logoutUser(c *RequestContext, res *ResponseData) {
	if c.CurrentSession != nil {
		err := c.Sessions.Delete(c, c.CurrentSession.ID)
		if err != nil {
			c.Logger.Error().Err(err).Msg("failed to delete session on logout")
		}
		c.CurrentSession = nil
	}
	res.SetCookie(auth.DeleteSessionCookie)
}

func showLoginWithFailure(c *RequestContext, redirect string, msg string) ResponseData {
	baseData := getBaseDataAutocrumb(c, "Log in")
	baseData.AddImmediateNotice("failure", msg)

	var res ResponseData
	res.StatusCode = http.StatusBadRequest
	res.MustWriteTemplate("login.html", LoginPageData{
		BaseData:    baseData,
		SubmitUrl:   stemurl.BuildLogin(),
		RedirectUrl: redirect,
	})
	return res
}

// safeRedirect only allows redirects back into this site.
func safeRedirect(dest string) string {
	home := stemurl.BuildHomepage()
	if strings.HasPrefix(dest, home) {
		return dest
	}
	if strings.HasPrefix(dest, "/") && !strings.HasPrefix(dest, "//") && !strings.HasPrefix(dest, "/\\") {
		return dest
	}
	return home
}
