// Package preview holds images a user has selected but not yet uploaded to the
// backend, and hands out short-lived URLs for showing them back to the user.
package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrNotFound = errors.New("preview not found")
	ErrTooLarge = errors.New("file is too large")
)

type Upload struct {
	Filename string
	Data     []byte
}

type Preview struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64

	// IsImage is set when the data decodes as an image, along with its size.
	// Other files are still kept and previewed as they are.
	IsImage bool
	Width   int
	Height  int

	URL       string
	ExpiresAt time.Time
}

type Store interface {
	Put(ctx context.Context, u Upload) (Preview, error)
	Get(ctx context.Context, id string) (Preview, error)
	Open(ctx context.Context, id string) (io.ReadCloser, Preview, error)
	Revoke(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int, error)
}

// ReadUpload reads at most maxSize bytes of r into an Upload.
func ReadUpload(filename string, r io.Reader, maxSize int64) (Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return Upload{}, err
	}
	if int64(len(data)) > maxSize {
		return Upload{}, ErrTooLarge
	}
	return Upload{Filename: filename, Data: data}, nil
}

// inspect fills in everything about a preview that comes from the file itself.
// Any file is accepted; only its size is enforced.
func inspect(u Upload, maxSize int64) (Preview, error) {
	if maxSize > 0 && int64(len(u.Data)) > maxSize {
		return Preview{}, ErrTooLarge
	}

	mt := mimetype.Detect(u.Data)
	p := Preview{
		Filename:    sanitizeFilename(u.Filename),
		ContentType: mt.String(),
		Size:        int64(len(u.Data)),
	}
	if strings.HasPrefix(mt.String(), "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data)); err == nil {
			p.IsImage = true
			p.Width = cfg.Width
			p.Height = cfg.Height
		}
	}
	return p, nil
}

func sanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, filename)
}
