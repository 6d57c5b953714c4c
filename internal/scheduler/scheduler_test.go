package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsBothJobsConcurrently(t *testing.T) {
	var plaques, displacement atomic.Int32
	s := &Scheduler{
		plaques: NewJob("modified_plaques", func(ctx context.Context) (int, error) {
			plaques.Add(1)
			return 0, nil
		}, time.Hour, time.Hour),
		displacement: NewJob("device_displacement", func(ctx context.Context) (int, error) {
			displacement.Add(1)
			return 0, nil
		}, time.Hour, time.Hour),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	assert.Eventually(t, func() bool {
		return plaques.Load() >= 1 && displacement.Load() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
