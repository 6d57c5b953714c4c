package satellite

import (
	"context"
	"sync"

	"github.com/geoplaque/satellite/internal/status"
)

// rendezvous is the broadcast wait point between a pending broadcast
// paquet and the Broadcaster consumer thread that learns of novelty.
// The original design (condition variable + pending-pointer, guarded by
// an edit mutex and a separate wait mutex) is translated here as a
// single-slot buffered channel: a pending wait registers by taking the
// slot, the consumer thread wakes it by sending, and the edit mutex
// still guards the revision fields themselves. See the recorded design
// decision on the broadcast rendezvous implementation.
type rendezvous struct {
	mu sync.Mutex

	lastKnown [3]uint32
	current   [3]uint32

	wake    chan struct{}
	pending bool
}

// Revision channel indices, in the order the broadcast handler checks
// them for novelty: radar first, then sight, then map.
const (
	channelRadar = 0
	channelSight = 1
	channelMap   = 2
)

func newRendezvous() *rendezvous {
	return &rendezvous{wake: make(chan struct{}, 1)}
}

// seed installs the session's server-known revision triple as current.
// The broadcast handler calls this with a fresh read from the session
// row before beginWait, so a subscribe that arrives before the
// Broadcaster consumer's first update still sees the revisions the
// scheduler has already advanced rather than the zero value
// newRendezvous starts with.
func (r *rendezvous) seed(onRadar, inSight, onMap uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = [3]uint32{onRadar, inSight, onMap}
}

// beginWait clamps any last-known value greater than current to zero
// (client amnesia), computes per-channel missing counts, and either
// returns immediately (novelty already present) or registers this
// caller as the pending waiter. Only one broadcast paquet may be
// pending per task; a second caller observes errAlreadyPending.
func (r *rendezvous) beginWait(lastKnown [3]uint32) (missing [3]uint32, immediate bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		return [3]uint32{}, false, status.New("satellite.broadcast.begin_wait", status.ErrBroadcastAlreadyPending)
	}

	for i := 0; i < 3; i++ {
		if lastKnown[i] > r.current[i] {
			lastKnown[i] = 0
		}
		missing[i] = r.current[i] - lastKnown[i]
	}
	r.lastKnown = lastKnown

	if missing[channelRadar] != 0 || missing[channelSight] != 0 || missing[channelMap] != 0 {
		return missing, true, nil
	}

	r.pending = true
	return missing, false, nil
}

// wait blocks until woken by update or ctx is cancelled (task
// termination), then clears the pending slot and recomputes missing
// against the latest current revisions.
func (r *rendezvous) wait(ctx context.Context) (missing [3]uint32, err error) {
	select {
	case <-r.wake:
	case <-ctx.Done():
		r.mu.Lock()
		r.pending = false
		r.mu.Unlock()
		return [3]uint32{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = false
	for i := 0; i < 3; i++ {
		missing[i] = r.current[i] - r.lastKnown[i]
	}
	return missing, nil
}

// update is called by the Broadcaster consumer thread: stores the new
// current revisions and, if a broadcast paquet is pending, wakes it.
func (r *rendezvous) update(onRadar, inSight, onMap uint32) {
	r.mu.Lock()
	r.current = [3]uint32{onRadar, inSight, onMap}
	wasPending := r.pending
	r.mu.Unlock()

	if wasPending {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}
