package broadcaster

import (
	"context"
	"net"
	"sync"

	"github.com/geoplaque/satellite/internal/dbpool"
)

// Broadcaster owns the producer/listener pair described in §4.D: a
// database-polling producer and a loopback listener that ships revised
// sessions to whichever Satellite process has dialed in as the
// consumer.
type Broadcaster struct {
	addr     string
	store    *Store
	desk     *desk
	producer *producer

	mu sync.Mutex
	ln net.Listener
}

// New builds a Broadcaster bound to db for its revised-sessions polling
// and addr for its loopback listener (e.g. "127.0.0.1:0" to let the OS
// pick a port in tests).
func New(addr string, db *dbpool.Chain) *Broadcaster {
	d := newDesk()
	store := NewStore(db)
	return &Broadcaster{
		addr:     addr,
		store:    store,
		desk:     d,
		producer: newProducer(store, d),
	}
}

// SetMetrics installs the QueueMetrics instance the broadcaster's desk
// reports its pending-session backlog to.
func (b *Broadcaster) SetMetrics(m QueueMetrics) {
	b.desk.mu.Lock()
	b.desk.metrics = m
	b.desk.mu.Unlock()
}

// SetBatchCap changes the producer's revised-sessions batch cap,
// effective on its next poll. A config hot-reload calls this to apply a
// changed value without restarting the process.
func (b *Broadcaster) SetBatchCap(n int) {
	b.producer.SetBatchCap(n)
}

// Addr reports the bound listener address; nil until Run has bound the
// listener.
func (b *Broadcaster) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ln == nil {
		return nil
	}
	return b.ln.Addr()
}

// Run binds the loopback listener and blocks until ctx is cancelled,
// running the producer and listener concurrently.
func (b *Broadcaster) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.ln = ln
	b.mu.Unlock()

	l := newListener(ln, b.desk)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.producer.run(ctx)
	}()
	go func() {
		defer wg.Done()
		l.run(ctx)
	}()
	wg.Wait()
	return nil
}
