package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCancelAndWait(t *testing.T) {
	t.Run("finishes fast enough", func(t *testing.T) {
		testJobs := Jobs{
			FakeJob("Job A", time.Millisecond*100),
			FakeJob("Job B", time.Millisecond*200),
		}

		before := time.Now()
		unfinished := testJobs.CancelAndWait(time.Second * 1)
		after := time.Now()
		assert.WithinDuration(t, after, before, time.Millisecond*500, "tracker.Finish did not finish fast enough")
		assert.Len(t, unfinished, 0)
	})
	t.Run("reports unfinished jobs", func(t *testing.T) {
		testJobs := Jobs{
			FakeJob("Job A", time.Millisecond*100),
			FakeJob("Job B", time.Second*10),
		}

		unfinished := testJobs.CancelAndWait(time.Second * 1)
		assert.Equal(t, []string{"Job B"}, unfinished)
	})
}

func FakeJob(name string, timeout time.Duration) *Job {
	job := New(name)
	go func() {
		<-job.Ctx.Done()
		timer := time.NewTimer(timeout)
		<-timer.C
		job.Finish()
	}()
	return job
}

func TestPeriodic(t *testing.T) {
	var runs atomic.Int32
	job := Periodic("counter", time.Millisecond*10, func(ctx context.Context) error {
		if runs.Add(1) == 2 {
			panic("second run panics")
		}
		return nil
	})

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond*5)

	unfinished := Jobs{job}.CancelAndWait(time.Second)
	assert.Empty(t, unfinished)
}
