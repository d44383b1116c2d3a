package website

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"git.automatex.dev/stem/stemweb/src/oops"
	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
)

// ServePreview serves previews held by this process. S3-backed previews are
// handed out as presigned URLs and never come through here.
func ServePreview(c *RequestContext) ResponseData {
	r, p, err := c.Previews.Open(c, c.PathParams["id"])
	if errors.Is(err, preview.ErrNotFound) {
		return FourOhFour(c)
	} else if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to open preview"))
	}
	defer r.Close()

	var res ResponseData
	res.Header().Set("Content-Type", p.ContentType)
	res.Header().Set("Content-Length", strconv.FormatInt(p.Size, 10))
	res.Header().Set("Cache-Control", "private, no-store")
	res.Header().Set("X-Content-Type-Options", "nosniff")
	res.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if !p.IsImage {
		res.Header().Set("Content-Disposition", "attachment")
	}
	if _, err := io.Copy(&res, r); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to read preview"))
	}
	return res
}

// This will skip the common path prefix for public files. http.FileServer
// wants an http.FS, and that wants an fs.FS rooted at the right place.
var publicHTTPFS = http.StripPrefix(stemurl.StaticPath, http.FileServer(http.FS(templates.Public())))

func ServePublic(c *RequestContext) ResponseData {
	var res ResponseData
	publicHTTPFS.ServeHTTP(&res, c.Req)
	return res
}
