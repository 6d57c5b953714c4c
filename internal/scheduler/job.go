package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
)

// Default poll intervals, taken from main.c's LATCH_TIMEOUT_WHEN_IDLE /
// LATCH_TIMEOUT_WHEN_BUSY. A Job falls back to these when its config
// leaves them at zero.
const (
	DefaultIdleInterval = 1 * time.Second
	DefaultBusyInterval = 100 * time.Millisecond
)

// runFunc executes one pass of a stored procedure and reports how many
// sessions it touched.
type runFunc func(ctx context.Context) (int, error)

// Job polls a single stored procedure on an adaptive interval: idle
// between empty passes, busy (shorter) right after a pass that found
// work, mirroring main.c's single combined loop but scoped to one
// procedure so the two run on independent schedules.
type Job struct {
	name string
	run  runFunc

	idleInterval atomic.Int64
	busyInterval atomic.Int64
}

// NewJob builds a Job named name that calls run on each tick. A zero
// idleInterval or busyInterval falls back to the package defaults.
func NewJob(name string, run runFunc, idleInterval, busyInterval time.Duration) *Job {
	if idleInterval <= 0 {
		idleInterval = DefaultIdleInterval
	}
	if busyInterval <= 0 {
		busyInterval = DefaultBusyInterval
	}
	j := &Job{name: name, run: run}
	j.idleInterval.Store(int64(idleInterval))
	j.busyInterval.Store(int64(busyInterval))
	return j
}

// SetIntervals changes the job's idle/busy poll intervals, effective on
// its next wait. A zero or negative value leaves the corresponding
// interval unchanged, so a config reload can adjust just one of the two.
func (j *Job) SetIntervals(idleInterval, busyInterval time.Duration) {
	if idleInterval > 0 {
		j.idleInterval.Store(int64(idleInterval))
	}
	if busyInterval > 0 {
		j.busyInterval.Store(int64(busyInterval))
	}
}

// Run executes the job's poll loop until ctx is cancelled. Each pass
// runs immediately, then the loop waits idleInterval (nothing found) or
// busyInterval (something found) before the next pass, as main.c's
// single loop did for both procedures combined.
func (j *Job) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(j.idleInterval.Load())
		n, err := j.run(ctx)
		if err != nil {
			logger.WarnCtx(ctx, "scheduler job failed", "job", j.name, "error", err)
		} else if n > 0 {
			logger.DebugCtx(ctx, "scheduler job processed sessions", "job", j.name, "count", n)
			wait = time.Duration(j.busyInterval.Load())
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
