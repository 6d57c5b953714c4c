// Package dbpool implements the database handle pool: a named chain of
// persistent connections, each wrapped in an implicit transaction for the
// duration of a caller's hold, handed out and reclaimed through a
// free-index ring.
package dbpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
)

// Chain is a named pool of persistent Handles, a free-index ring, and a
// lock. A handle is either free in the ring or exclusively held by one
// caller wrapped in an implicit transaction.
type Chain struct {
	name     string
	conninfo string

	mu      sync.Mutex
	handles []*Handle
	free    []uint32
}

// NewChain eagerly opens n connections against conninfo and populates the
// free-index ring. A connection failure on any handle tears down the
// handles already opened and returns an error.
func NewChain(ctx context.Context, name string, n int, conninfo string) (*Chain, error) {
	c := &Chain{
		name:     name,
		conninfo: conninfo,
		handles:  make([]*Handle, n),
		free:     make([]uint32, 0, n),
	}

	for i := 0; i < n; i++ {
		conn, err := pgx.Connect(ctx, conninfo)
		if err != nil {
			c.closeAll(ctx)
			return nil, status.Wrap(fmt.Sprintf("dbpool.init_chain(%s)", name), status.ErrNoHandlersAvailable, err)
		}
		c.handles[i] = &Handle{id: uint32(i), chain: c, conn: conn}
		c.free = append(c.free, uint32(i))
	}

	logger.Info("dbpool chain initialized", "chain", name, "handles", n)
	return c, nil
}

func (c *Chain) closeAll(ctx context.Context) {
	for _, h := range c.handles {
		if h != nil && h.conn != nil {
			_ = h.conn.Close(ctx)
		}
	}
}

// Name returns the chain's configured name, used in log lines and faults.
func (c *Chain) Name() string {
	return c.name
}

// Size returns the total number of handles in the chain.
func (c *Chain) Size() int {
	return len(c.handles)
}

// PeekHandle dequeues a handle from the free ring and opens a
// transaction on it. If the handle still carries an open transaction
// from a prior caller (the caller forgot to poke or reset it), the
// chain rolls that transaction back first and logs a warning. On
// transaction-start failure the handle is returned to the ring and a
// nil handle is returned alongside the error.
func (c *Chain) PeekHandle(ctx context.Context) (*Handle, error) {
	c.mu.Lock()
	if len(c.free) == 0 {
		c.mu.Unlock()
		return nil, status.New(fmt.Sprintf("dbpool.peek_handle(%s)", c.name), status.ErrNoHandlersAvailable)
	}
	last := len(c.free) - 1
	id := c.free[last]
	c.free = c.free[:last]
	c.mu.Unlock()

	h := c.handles[id]
	if h.tx != nil {
		logger.WarnCtx(ctx, "dbpool handle still locked from prior caller, rolling back", "chain", c.name, "handle", id)
		_ = h.tx.Rollback(ctx)
		h.tx = nil
	}

	tx, err := h.conn.Begin(ctx)
	if err != nil {
		c.mu.Lock()
		c.free = append(c.free, id)
		c.mu.Unlock()
		return nil, status.Wrap(fmt.Sprintf("dbpool.peek_handle(%s)", c.name), status.ErrNoHandlersAvailable, err)
	}

	h.tx = tx
	h.params = h.params[:0]
	h.result = nil
	return h, nil
}

// PokeHandle commits the handle's current transaction and re-enqueues
// the handle onto the free ring. The commit error, if any, is still
// returned after the handle is reclaimed, since a caller that fails to
// reclaim a handle would eventually starve the chain.
func (c *Chain) PokeHandle(ctx context.Context, h *Handle) error {
	var err error
	if h.tx != nil {
		err = h.tx.Commit(ctx)
		h.tx = nil
	}
	h.params = h.params[:0]
	h.result = nil

	c.mu.Lock()
	c.free = append(c.free, h.id)
	c.mu.Unlock()

	if err != nil {
		return status.Wrap(fmt.Sprintf("dbpool.poke_handle(%s)", c.name), status.ErrUnexpectedResult, err)
	}
	return nil
}

// ResetHandle rolls back the handle's transaction and re-opens the
// underlying connection, then re-enqueues it. Used when a handle's
// connection is suspected to be in a bad state after a failed query.
func (c *Chain) ResetHandle(ctx context.Context, h *Handle) error {
	if h.tx != nil {
		_ = h.tx.Rollback(ctx)
		h.tx = nil
	}
	h.params = h.params[:0]
	h.result = nil

	_ = h.conn.Close(ctx)
	conn, err := pgx.Connect(ctx, c.conninfo)

	c.mu.Lock()
	c.free = append(c.free, h.id)
	c.mu.Unlock()

	if err != nil {
		return status.Wrap(fmt.Sprintf("dbpool.reset_handle(%s)", c.name), status.ErrNoHandlersAvailable, err)
	}
	h.conn = conn
	return nil
}

// Close closes every handle's underlying connection. Intended for
// process shutdown; does not touch the free ring.
func (c *Chain) Close(ctx context.Context) {
	c.closeAll(ctx)
}
