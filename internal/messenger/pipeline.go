package messenger

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// Pipeline cadence: fetch batch cap and the bounded wait on the process
// latch named in §4.E's main-thread loop.
const (
	fetchCap     = 128
	latchTimeout = 500 * time.Millisecond
	bufferOwner  = 0 // Messenger is not a Satellite task; buffers it owns carry owner id 0.
)

// Metrics reports the pipeline's queue backlog and the sender's APNs
// retry outcomes. Optional: a nil Metrics skips reporting.
type Metrics interface {
	SetQueueDepth(queue string, depth int)
	IncAPNsRetry(outcome string)
}

// pipelineStore is the subset of Store the pipeline thread depends on,
// split out so tests can drive the lifecycle against a fake instead of a
// real database handle chain.
type pipelineStore interface {
	CountOutstanding(ctx context.Context) (int, error)
	FetchBatch(ctx context.Context, cap int) ([]pendingRow, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkProcessed(ctx context.Context, ids []int64) error
	Recover(ctx context.Context) (int, error)
}

// Pipeline runs the four-queue notification lifecycle described in
// §4.E: outstanding -> in-the-air -> sent -> processed, driven by a
// bounded wait in place of the original's condition variable (Go has no
// direct analogue to a timed pthread_cond_wait outside select/time.After,
// which is exactly what this loop uses).
type Pipeline struct {
	store  pipelineStore
	pool   *mmps.Pool
	sender *Sender

	outstanding *queue
	inTheAir    *queue
	sent        *queue
	processed   *queue

	metrics Metrics
}

// SetMetrics installs the Metrics instance this pipeline reports its
// queue depth to, and attaches the same instance to the sender so its
// APNs retries are reported too.
func (p *Pipeline) SetMetrics(m Metrics) {
	p.metrics = m
	p.sender.metrics = m
}

// NewPipeline wires store, pool, and sender into a Pipeline.
func NewPipeline(store pipelineStore, pool *mmps.Pool, sender *Sender) *Pipeline {
	p := &Pipeline{
		store:       store,
		pool:        pool,
		sender:      sender,
		outstanding: &queue{},
		inTheAir:    &queue{},
		sent:        &queue{},
		processed:   &queue{},
	}
	sender.attach(p.inTheAir, p.sent)
	return p
}

// Recover resets any in_messanger = TRUE rows left over from a prior
// process that crashed mid-pipeline. Call this once before Run.
func (p *Pipeline) Recover(ctx context.Context) error {
	n, err := p.store.Recover(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.InfoCtx(ctx, "messenger: recovered stale in-flight notifications", "count", n)
	}
	return nil
}

// Run executes the main pipeline thread's loop until ctx is cancelled.
// The APNs sender thread runs independently; call sender.Run in its own
// goroutine alongside this one.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(latchTimeout):
		}
	}
}

func (p *Pipeline) tick(ctx context.Context) {
	count, err := p.store.CountOutstanding(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "messenger pipeline: count outstanding failed", "error", err)
		return
	}
	if count > 0 {
		rows, err := p.store.FetchBatch(ctx, fetchCap)
		if err != nil {
			logger.WarnCtx(ctx, "messenger pipeline: fetch batch failed", "error", err)
		} else {
			for _, row := range rows {
				n, err := p.buildNotification(row)
				if err != nil {
					logger.WarnCtx(ctx, "messenger pipeline: render notification failed", "error", err, "id", row.id)
					continue
				}
				p.outstanding.push(n)
			}
		}
	}

	// outstanding -> in-the-air, then wake the APNs thread.
	p.outstanding.moveAllTo(p.inTheAir)
	p.sender.wake()

	// Walk sent: flag rows as sent, then concatenate onto processed.
	sentBatch := p.sent.drain()
	if len(sentBatch) > 0 {
		ids := make([]int64, len(sentBatch))
		for i, n := range sentBatch {
			ids[i] = n.ID
		}
		if err := p.store.MarkSent(ctx, ids); err != nil {
			logger.WarnCtx(ctx, "messenger pipeline: mark sent failed", "error", err)
		}
		p.processed.pushAll(sentBatch)
	}

	// Walk processed: clear in_messanger, then return buffers to the pool.
	processedBatch := p.processed.drain()
	if len(processedBatch) > 0 {
		ids := make([]int64, len(processedBatch))
		for i, n := range processedBatch {
			ids[i] = n.ID
		}
		if err := p.store.MarkProcessed(ctx, ids); err != nil {
			logger.WarnCtx(ctx, "messenger pipeline: mark processed failed", "error", err)
		}
		for _, n := range processedBatch {
			if n.buf != nil {
				p.pool.PokeBuffer(n.buf)
			}
		}
	}

	if p.metrics != nil {
		p.metrics.SetQueueDepth("messenger", p.outstanding.len()+p.inTheAir.len()+p.sent.len()+p.processed.len())
	}
}

func (p *Pipeline) buildNotification(row pendingRow) (*Notification, error) {
	raw, err := hex.DecodeString(row.deviceToken)
	if err != nil || len(raw) != wire.DeviceTokenSize {
		return nil, status.New("messenger.pipeline.build_notification", status.ErrIncompleteData)
	}
	buf, err := encodePayload(p.pool, bufferOwner, row.messageKey, row.args)
	if err != nil {
		return nil, status.Wrap("messenger.pipeline.build_notification", status.ErrCannotAllocateOutputBuffer, err)
	}
	n := &Notification{
		ID:         row.id,
		MessageKey: row.messageKey,
		Args:       row.args,
		buf:        buf,
	}
	copy(n.DeviceToken[:], raw)
	return n, nil
}
