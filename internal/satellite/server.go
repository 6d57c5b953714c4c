package satellite

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// Server accepts TCP connections and runs one Task per connection. It
// does not own the database chain or the buffer pool; the caller wires
// those in, sized and configured independently of the engine.
type Server struct {
	addr  string
	pool  *mmps.Pool
	db    *dbpool.Chain
	store *Store

	maxConnections int
	connSemaphore  chan struct{}

	shutdownTimeout time.Duration

	listenerMu sync.Mutex
	listener   net.Listener

	connCount atomic.Int64
	conns     sync.WaitGroup

	tasksMu sync.Mutex
	tasks   map[uint64]*Task

	metrics TaskMetrics
}

// NewServer builds a Server listening on addr. maxConnections limits how
// many Tasks run concurrently; zero means unlimited.
func NewServer(addr string, pool *mmps.Pool, db *dbpool.Chain, store *Store, maxConnections int) *Server {
	s := &Server{
		addr:            addr,
		pool:            pool,
		db:              db,
		store:           store,
		maxConnections:  maxConnections,
		shutdownTimeout: 30 * time.Second,
		tasks:           make(map[uint64]*Task),
	}
	if maxConnections > 0 {
		s.connSemaphore = make(chan struct{}, maxConnections)
	}
	return s
}

// SetMetrics installs the TaskMetrics instance every Task this server
// runs reports its active paquet count to.
func (s *Server) SetMetrics(m TaskMetrics) {
	s.metrics = m
}

// SetShutdownTimeout overrides the default 30s grace period Serve waits
// for in-flight tasks to drain after context cancellation.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// Serve listens on the configured address and runs one Task per accepted
// connection until ctx is cancelled, then waits (up to the shutdown
// timeout) for in-flight tasks to terminate before returning.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("satellite: listen on %s: %w", s.addr, err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	logger.InfoCtx(ctx, "satellite server listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		s.listenerMu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.listenerMu.Unlock()
		s.interruptBlockingReads()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-ctx.Done():
				return s.drain()
			}
		}

		conn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-ctx.Done():
				return s.drain()
			default:
				logger.WarnCtx(ctx, "accept failed", "error", err)
				continue
			}
		}

		s.connCount.Add(1)
		task := NewTask(conn, s.pool, s.db, s.store)
		task.SetMetrics(s.metrics)
		s.tasksMu.Lock()
		s.tasks[task.ID()] = task
		s.tasksMu.Unlock()

		s.conns.Add(1)
		go func() {
			defer func() {
				s.tasksMu.Lock()
				delete(s.tasks, task.ID())
				s.tasksMu.Unlock()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
				s.conns.Done()
			}()
			task.Run(ctx)
		}()
	}
}

// interruptBlockingReads sets a short read deadline on every live task's
// connection so a task blocked in a 10-second pilot/payload read notices
// shutdown quickly instead of riding out its full timeout.
func (s *Server) interruptBlockingReads() {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	for _, task := range s.tasks {
		task.interruptRead()
	}
}

// drain waits for in-flight tasks to finish up to the shutdown timeout.
func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.shutdownTimeout):
		return fmt.Errorf("satellite: shutdown timed out with %d tasks still running", s.connCount.Load())
	}
}

// taskByID looks up a live task by its process-local id, used by the
// Broadcaster consumer thread to route a novelty update to the waiting
// rendezvous.
func (s *Server) taskByID(id uint64) (*Task, bool) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}
