package website

import (
	"fmt"
	"net/http"
	"strings"

	"git.automatex.dev/stem/stemweb/src/templates"
)

func FourOhFour(c *RequestContext) ResponseData {
	var res ResponseData
	res.StatusCode = http.StatusNotFound

	if c.Req.Header["Accept"] != nil && strings.Contains(c.Req.Header["Accept"][0], "text/html") {
		templateData := struct {
			templates.BaseData
			Wanted string
		}{
			BaseData: getBaseData(c, "Page not found", nil),
			Wanted:   c.FullUrl(),
		}
		res.MustWriteTemplate("404.html", templateData)
	} else {
		res.Write([]byte("Not Found"))
	}
	return res
}

// A SafeError can be used to wrap another error and explicitly provide
// an error message that is safe to show to a user. This allows the original
// error to easily be logged and for servers to consistently return errors
// in a standard format, without having to worry about leaking sensitive
// info (assuming you use the right middleware!).
type SafeError struct {
	Wrapped error
	Msg     string
}

func NewSafeError(err error, msg string, args ...interface{}) error {
	return &SafeError{
		Wrapped: err,
		Msg:     fmt.Sprintf(msg, args...),
	}
}

func (s *SafeError) Error() string {
	if s.Wrapped != nil {
		return fmt.Sprintf("%s: %v", s.Msg, s.Wrapped)
	}
	return s.Msg
}

func (s *SafeError) Unwrap() error {
	return s.Wrapped
}
