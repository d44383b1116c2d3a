package preview

import (
	"context"
	"time"

	"git.automatex.dev/stem/stemweb/src/jobs"
	"git.automatex.dev/stem/stemweb/src/logging"
)

func PeriodicallyDeleteExpired(store Store, interval time.Duration) *jobs.Job {
	return jobs.Periodic("preview janitor", interval, func(ctx context.Context) error {
		n, err := store.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logging.ExtractLogger(ctx).Info().Int("num deleted previews", n).Msg("Deleted expired previews")
		}
		return nil
	})
}
