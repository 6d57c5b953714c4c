package broadcaster

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/wire"
)

// Producer polling cadence, named in §4.D: the database is polled on a
// fixed interval rather than via LISTEN/NOTIFY, mirroring the original's
// simple poll loop. defaultBatchCap seeds producer.batchCap, which a
// config hot-reload may adjust afterward (SPEC_FULL.md's live-tunable
// broadcaster batch cap).
const (
	pollInterval    = 500 * time.Millisecond
	defaultBatchCap = 64
	ackWaitBudget   = 2 * time.Second
	ackPoll         = 20 * time.Millisecond
)

// revisedStore is the subset of Store the producer depends on, split out
// so tests can drive the state machine against a fake instead of a real
// database handle chain.
type revisedStore interface {
	CountRevised(ctx context.Context) (int, error)
	FillBatch(ctx context.Context, cap int) ([]RevisedSession, error)
}

// producer runs the Idle -> DetectRevised -> FillBatch -> MarkDelivering
// -> Transmit -> AckWait -> Idle state machine on its own goroutine,
// driven by Store.CountRevised and Store.FillBatch.
type producer struct {
	store    revisedStore
	desk     *desk
	batchCap atomic.Int32
}

func newProducer(store revisedStore, desk *desk) *producer {
	p := &producer{store: store, desk: desk}
	p.batchCap.Store(defaultBatchCap)
	return p
}

// SetBatchCap changes how many revised sessions a single FillBatch pass
// pulls, effective on the next tick. Safe to call concurrently with run.
func (p *producer) SetBatchCap(n int) {
	if n > 0 {
		p.batchCap.Store(int32(n))
	}
}

// run loops until ctx is cancelled. Each iteration corresponds to one
// full pass through the state machine's six states.
func (p *producer) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		p.tick(ctx)
	}
}

func (p *producer) tick(ctx context.Context) {
	// DetectRevised
	count, err := p.store.CountRevised(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "broadcaster producer: count revised failed", "error", err)
		return
	}
	if count == 0 {
		return
	}

	// FillBatch
	rows, err := p.store.FillBatch(ctx, int(p.batchCap.Load()))
	if err != nil {
		logger.WarnCtx(ctx, "broadcaster producer: fill batch failed", "error", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	// MarkDelivering
	batch := make([]wire.Session, 0, len(rows))
	receiptIDs := make([]uint64, 0, len(rows))
	for _, row := range rows {
		receiptID := p.desk.nextReceipt()
		receiptIDs = append(receiptIDs, receiptID)
		batch = append(batch, wire.Session{
			ReceiptID:       receiptID,
			SessionID:       uint64(row.SessionID),
			SatelliteTaskID: row.SatelliteTaskID,
			OnRadarRevision: row.OnRadarRevision,
			InSightRevision: row.InSightRevision,
			OnMapRevision:   row.OnMapRevision,
		})
	}
	p.desk.markDelivering(batch) // also performs Transmit's wakeup

	// AckWait: give the listener a bounded window to drain this batch
	// before the next poll starts piling more onto the desk. A session
	// the listener has not yet delivered stays on the desk and is
	// retried on the next connection; the database row was already
	// removed from the revised set, so there is no redelivery from that
	// side, only redelivery of the in-memory record to whatever
	// consumer eventually reconnects.
	deadline := time.Now().Add(ackWaitBudget)
	for time.Now().Before(deadline) {
		if p.desk.remaining(receiptIDs) == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(ackPoll):
		}
	}
	if n := p.desk.remaining(receiptIDs); n > 0 {
		logger.DebugCtx(ctx, "broadcaster producer: batch still pending after ack wait", "unacked", n)
	}
}
