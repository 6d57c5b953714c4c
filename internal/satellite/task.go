// Package satellite implements the Satellite task engine: one Task per
// accepted TCP connection, multiplexing concurrent request/response
// paquets and suspending a single broadcast paquet until server-side
// novelty arrives.
package satellite

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// TaskMetrics reports concurrent paquet activity across every task the
// server is running. Optional: a nil TaskMetrics skips reporting.
type TaskMetrics interface {
	IncActivePaquets()
	DecActivePaquets()
}

// State is the per-connection task lifecycle, per the state machine
// Accepted -> DialogueReceived -> (Anticipant | Authenticated | Rejected)
// -> RegularLoop -> Terminated.
type State int32

const (
	StateAccepted State = iota
	StateDialogueReceived
	StateAnticipant
	StateAuthenticated
	StateRejected
	StateRegularLoop
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "Accepted"
	case StateDialogueReceived:
		return "DialogueReceived"
	case StateAnticipant:
		return "Anticipant"
	case StateAuthenticated:
		return "Authenticated"
	case StateRejected:
		return "Rejected"
	case StateRegularLoop:
		return "RegularLoop"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

var taskIDs atomic.Uint64

// Task serves one authenticated client over one TCP connection for the
// lifetime of that connection. It multiplexes concurrent request/response
// paquets and owns the broadcast rendezvous for the connection.
type Task struct {
	id    uint64
	conn  net.Conn
	pool  *mmps.Pool
	db    *dbpool.Chain
	store *Store

	state atomic.Int32

	deviceID  string
	profileID string
	sessionID uint64

	// transmitMu serialises sends; the order paquet workers acquire it,
	// not the order they were accepted, decides wire order.
	transmitMu sync.Mutex

	paquetsMu sync.Mutex
	paquets   map[uint32]context.CancelFunc

	broadcast *rendezvous

	workers sync.WaitGroup

	metrics TaskMetrics
}

// NewTask wraps an accepted connection in a Task, ready to run its state
// machine. pool supplies work buffers; db supplies the database handle
// chain used to resolve devices, profiles, and sessions.
func NewTask(conn net.Conn, pool *mmps.Pool, db *dbpool.Chain, store *Store) *Task {
	t := &Task{
		id:        taskIDs.Add(1),
		conn:      conn,
		pool:      pool,
		db:        db,
		store:     store,
		paquets:   make(map[uint32]context.CancelFunc),
		broadcast: newRendezvous(),
	}
	t.state.Store(int32(StateAccepted))
	return t
}

// SetMetrics installs the TaskMetrics instance this task reports its
// active paquet count to. Must be called before Run.
func (t *Task) SetMetrics(m TaskMetrics) {
	t.metrics = m
}

// ID returns the task's process-local identifier, used in log lines and
// as the satellite_task_id the Broadcaster addresses.
func (t *Task) ID() uint64 {
	return t.id
}

func (t *Task) setState(s State) {
	t.state.Store(int32(s))
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Run drives the task through its full lifecycle: dialogue, optional
// anticipant registration or authentication, the regular paquet loop,
// and termination cleanup. It returns once the connection is done.
func (t *Task) Run(ctx context.Context) {
	lc := logger.NewLogContext(t.conn.RemoteAddr().String()).WithTask(t.id)
	ctx = logger.WithContext(ctx, lc)

	defer t.terminate(ctx)

	demande, err := t.receiveDialogueDemande(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "dialogue demande rejected", "error", err)
		return
	}
	t.setState(StateDialogueReceived)

	switch demande.DialogueType {
	case wire.DialogueAnticipant:
		t.setState(StateAnticipant)
		t.runAnticipant(ctx, demande)
		return
	case wire.DialogueRegular:
		var ok bool
		ctx, ok = t.runAuthentication(ctx, demande)
		if !ok {
			t.setState(StateRejected)
			return
		}
		t.setState(StateAuthenticated)
	default:
		logger.WarnCtx(ctx, "unknown dialogue type", "type", demande.DialogueType)
		return
	}

	t.setState(StateRegularLoop)
	t.regularLoop(ctx)
}

// terminate cancels every in-flight paquet worker, waits for them to
// finish poking their own buffers, and closes the socket.
func (t *Task) terminate(ctx context.Context) {
	t.setState(StateTerminated)

	t.paquetsMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(t.paquets))
	for _, cancel := range t.paquets {
		cancels = append(cancels, cancel)
	}
	t.paquetsMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	t.workers.Wait()

	_ = t.conn.Close()
	logger.InfoCtx(ctx, "task terminated", "task", t.id)
}

// registerPaquet adds a worker's cancel func to the task's paquet chain,
// appended under the chain lock (shared with terminate's cancellation
// walk and the worker's own removal on completion).
func (t *Task) registerPaquet(paquetID uint32, cancel context.CancelFunc) error {
	t.paquetsMu.Lock()
	defer t.paquetsMu.Unlock()
	if _, exists := t.paquets[paquetID]; exists {
		return status.New("satellite.task.register_paquet", status.ErrCannotCreatePaquetThread)
	}
	t.paquets[paquetID] = cancel
	if t.metrics != nil {
		t.metrics.IncActivePaquets()
	}
	return nil
}

func (t *Task) unregisterPaquet(paquetID uint32) {
	t.paquetsMu.Lock()
	delete(t.paquets, paquetID)
	t.paquetsMu.Unlock()
	if t.metrics != nil {
		t.metrics.DecActivePaquets()
	}
}

// interruptRead sets a short read deadline on the task's connection,
// unblocking a pending pilot or payload read during server shutdown.
func (t *Task) interruptRead() {
	_ = t.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
}
