package preview

import (
	"context"

	"git.automatex.dev/stem/stemweb/src/config"
)

// NewFromConfig builds the configured preview backend. urlFor is used by the
// memory backend, whose previews are served by this process.
func NewFromConfig(ctx context.Context, urlFor func(id string) string) (Store, error) {
	cfg := config.Config.Previews
	if cfg.Backend == "s3" {
		return NewS3Store(ctx, config.Config.S3, cfg.TTL, cfg.MaxSize)
	}
	return NewMemoryStore(urlFor, cfg.TTL, cfg.MaxSize), nil
}
