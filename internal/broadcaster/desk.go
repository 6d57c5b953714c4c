package broadcaster

import (
	"sync"
	"sync/atomic"

	"github.com/geoplaque/satellite/internal/wire"
)

// QueueMetrics reports the desk's pending-session backlog. Optional: a
// nil QueueMetrics skips reporting.
type QueueMetrics interface {
	SetQueueDepth(queue string, depth int)
}

// desk is the shared state between the producer and listener threads:
// the populated session vector the producer hands off in MarkDelivering,
// guarded by a spinlock in the original and by an ordinary mutex here
// (Go's runtime-managed goroutines make a real spinlock counterproductive).
type desk struct {
	mu      sync.Mutex
	pending map[uint64]wire.Session // keyed by receipt id

	// semaphore wakes the listener thread out of its idle wait whenever
	// the producer has queued new sessions to transmit.
	semaphore chan struct{}

	nextReceiptID atomic.Uint64

	metrics QueueMetrics
}

func newDesk() *desk {
	return &desk{
		pending:   make(map[uint64]wire.Session),
		semaphore: make(chan struct{}, 1),
	}
}

// reportDepth publishes the desk's current backlog size, if a
// QueueMetrics instance is installed. Caller must hold d.mu.
func (d *desk) reportDepth() {
	if d.metrics != nil {
		d.metrics.SetQueueDepth("broadcaster", len(d.pending))
	}
}

// nextReceipt mints the next per-broadcaster receipt id.
func (d *desk) nextReceipt() uint64 {
	return d.nextReceiptID.Add(1)
}

// markDelivering stores batch on the desk and wakes the listener.
func (d *desk) markDelivering(batch []wire.Session) {
	d.mu.Lock()
	for _, s := range batch {
		d.pending[s.ReceiptID] = s
	}
	d.reportDepth()
	d.mu.Unlock()

	select {
	case d.semaphore <- struct{}{}:
	default:
	}
}

// snapshot returns every currently-queued session, in no particular
// order; the listener transmits all of them on each connection (a fresh
// connection must first drain whatever is still owed before idling).
func (d *desk) snapshot() []wire.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]wire.Session, 0, len(d.pending))
	for _, s := range d.pending {
		out = append(out, s)
	}
	return out
}

// ack removes receiptID from the desk once the consumer has confirmed
// it, per the at-most-once discipline: the database row was already
// deleted when the batch was filled, so there is nothing left to do but
// stop tracking it here.
func (d *desk) ack(receiptID uint64) {
	d.mu.Lock()
	delete(d.pending, receiptID)
	d.reportDepth()
	d.mu.Unlock()
}

// remaining reports how many of the given receipt ids are still
// unacknowledged.
func (d *desk) remaining(receiptIDs []uint64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, id := range receiptIDs {
		if _, ok := d.pending[id]; ok {
			n++
		}
	}
	return n
}
