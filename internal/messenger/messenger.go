// Package messenger implements the §4.E notification pipeline: a
// four-queue lifecycle (outstanding, in-the-air, sent, processed) on a
// database-polling main thread, feeding a persistent TLS session to
// Apple's Push Notification service on an independent sender thread.
package messenger

import (
	"context"
	"sync"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// Messenger wires a Pipeline and Sender together and runs them as the
// two threads §4.E names: one main pipeline thread, one APNs sender
// thread.
type Messenger struct {
	pipeline *Pipeline
	sender   *Sender
}

// New builds a Messenger polling db for outstanding notifications,
// rendering their payloads into pool, and delivering them to the APNs
// gateway named in cfg.
func New(db *dbpool.Chain, pool *mmps.Pool, cfg SenderConfig) *Messenger {
	sender := NewSender(cfg)
	pipeline := NewPipeline(NewStore(db), pool, sender)
	return &Messenger{pipeline: pipeline, sender: sender}
}

// SetMetrics installs the Metrics instance the pipeline and sender
// report queue depth and APNs retries to.
func (m *Messenger) SetMetrics(metrics Metrics) {
	m.pipeline.SetMetrics(metrics)
}

// Run recovers any crash-interrupted rows, then runs the pipeline and
// sender threads concurrently until ctx is cancelled.
func (m *Messenger) Run(ctx context.Context) error {
	if err := m.pipeline.Recover(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.pipeline.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		m.sender.Run(ctx)
	}()
	wg.Wait()
	return nil
}
