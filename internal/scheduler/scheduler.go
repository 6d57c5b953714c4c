package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/geoplaque/satellite/internal/dbpool"
)

// Config controls the two jobs' poll intervals. A zero field falls back
// to the package defaults.
type Config struct {
	ModifiedPlaquesIdleInterval    time.Duration
	ModifiedPlaquesBusyInterval    time.Duration
	DeviceDisplacementIdleInterval time.Duration
	DeviceDisplacementBusyInterval time.Duration
}

// Scheduler owns the two independently scheduled revision jobs.
type Scheduler struct {
	plaques      *Job
	displacement *Job
}

// New wires chain and cfg into a Scheduler.
func New(chain *dbpool.Chain, cfg Config) *Scheduler {
	store := NewStore(chain)
	return &Scheduler{
		plaques: NewJob("modified_plaques", store.RevisionSessionsForModifiedPlaques,
			cfg.ModifiedPlaquesIdleInterval, cfg.ModifiedPlaquesBusyInterval),
		displacement: NewJob("device_displacement", store.RevisionSessionsForDeviceDisplacement,
			cfg.DeviceDisplacementIdleInterval, cfg.DeviceDisplacementBusyInterval),
	}
}

// SetModifiedPlaquesIntervals applies a config hot-reload to the
// plaque-revision job.
func (s *Scheduler) SetModifiedPlaquesIntervals(idleInterval, busyInterval time.Duration) {
	s.plaques.SetIntervals(idleInterval, busyInterval)
}

// SetDeviceDisplacementIntervals applies a config hot-reload to the
// device-displacement job.
func (s *Scheduler) SetDeviceDisplacementIntervals(idleInterval, busyInterval time.Duration) {
	s.displacement.SetIntervals(idleInterval, busyInterval)
}

// Run starts both jobs and blocks until ctx is cancelled and both have
// returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.plaques.Run(ctx) }()
	go func() { defer wg.Done(); s.displacement.Run(ctx) }()
	wg.Wait()
}
