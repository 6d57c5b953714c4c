package satellite

import (
	"context"
	"errors"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// maxConcurrentPaquets bounds how many paquet workers a single task runs
// at once; a paquet received past this bound is rejected busy rather
// than queued, per §4.C.2.
const maxConcurrentPaquets = 32

// Paquet is one concurrent request on a Task: the worker's input chain,
// its command, and the means to build and transmit a response.
type Paquet struct {
	task        *Task
	pool        *mmps.Pool
	id          uint32
	commandCode uint32
	subcode     uint32
	input       *mmps.Buffer
}

// regularLoop reads paquets off the connection until an unrecoverable
// error, spawning one worker per paquet. It owns the task's read side;
// concurrent paquet workers only ever write (via transmit).
func (t *Task) regularLoop(ctx context.Context) {
	for {
		pilot, err := receivePilot(t.conn)
		if err != nil {
			if status.TerminatesTask(err) {
				logger.InfoCtx(ctx, "regular loop ending", "error", err)
				return
			}
			logger.WarnCtx(ctx, "pilot read failed", "error", err)
			return
		}

		var input *mmps.Buffer
		if pilot.PayloadSize > 0 {
			input, err = receivePayload(t.pool, t.conn, uint32(t.id), pilot.PayloadSize)
			if err != nil {
				logger.WarnCtx(ctx, "payload read failed", "error", err)
				return
			}
		}

		p := &Paquet{
			task:        t,
			pool:        t.pool,
			id:          pilot.PaquetID,
			commandCode: pilot.CommandCode,
			subcode:     pilot.CommandSubcode,
			input:       input,
		}

		if !t.spawnWorker(ctx, p) {
			t.rejectBusy(ctx, pilot)
			if input != nil {
				t.pool.PokeBuffer(input)
			}
		}
	}
}

// spawnWorker registers the paquet on the task's chain and starts its
// worker goroutine. Returns false (without starting anything) if the
// task is already running maxConcurrentPaquets workers.
func (t *Task) spawnWorker(ctx context.Context, p *Paquet) bool {
	t.paquetsMu.Lock()
	if len(t.paquets) >= maxConcurrentPaquets {
		t.paquetsMu.Unlock()
		return false
	}
	t.paquetsMu.Unlock()

	workerCtx, cancel := context.WithCancel(ctx)
	if err := t.registerPaquet(p.id, cancel); err != nil {
		cancel()
		return false
	}

	lc := logger.FromContext(ctx)
	if lc != nil {
		workerCtx = logger.WithContext(workerCtx, lc.WithPaquet(p.id))
	}

	t.workers.Add(1)
	go func() {
		defer t.workers.Done()
		defer t.unregisterPaquet(p.id)
		defer cancel()
		p.run(workerCtx)
	}()
	return true
}

// run dispatches the paquet to its handler and transmits the response.
// Every handler is responsible for releasing p.input itself (whether by
// poking it outright or folding it into the returned output chain); run
// only releases the chain the handler hands back.
func (p *Paquet) run(ctx context.Context) {
	handler, ok := dispatchTable[p.commandCode]
	if !ok {
		logger.WarnCtx(ctx, "unknown command code", "command", p.commandCode)
		if p.input != nil {
			p.pool.PokeBuffer(p.input)
		}
		return
	}

	output, err := handler(ctx, p)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.WarnCtx(ctx, "paquet handler failed", "command", p.commandCode, "error", err)
		}
		if output != nil {
			p.pool.PokeBuffer(output)
		}
		return
	}

	if err := p.task.transmit(p.id, p.commandCode, wire.SubcodeNone, output); err != nil {
		logger.WarnCtx(ctx, "failed to transmit paquet response", "error", err)
	}

	if output != nil {
		p.pool.PokeBuffer(output)
	}
}
