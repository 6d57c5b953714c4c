package satellite

import (
	"context"
	"net"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
)

// BroadcasterConsumer is Satellite's half of the Broadcaster loopback
// protocol (§4.D): it dials the Broadcaster's listener, reads Session
// revision records, routes each to the Task it names, and acknowledges
// with the record's receipt id. One consumer serves every Task the
// Server is currently running.
type BroadcasterConsumer struct {
	addr   string
	server *Server

	dialTimeout time.Duration
	retryDelay  time.Duration
}

// NewBroadcasterConsumer builds a consumer that dials addr (the
// Broadcaster's loopback listener) and demuxes revision records through
// server's live tasks.
func NewBroadcasterConsumer(addr string, server *Server) *BroadcasterConsumer {
	return &BroadcasterConsumer{
		addr:        addr,
		server:      server,
		dialTimeout: 5 * time.Second,
		retryDelay:  2 * time.Second,
	}
}

// Run dials and redials the Broadcaster until ctx is cancelled. Each
// connection attempt runs until the socket fails or ctx ends; a dropped
// connection is retried after retryDelay, matching the at-most-once
// semantics in §4.D: a redelivery never repeats a receipt already
// acknowledged, it only resumes with whatever the Broadcaster still has
// queued.
func (c *BroadcasterConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.runOnce(ctx); err != nil {
			logger.WarnCtx(ctx, "broadcaster consumer connection ended", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *BroadcasterConsumer) runOnce(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return status.Wrap("satellite.broadcaster_consumer.dial", status.ErrSocketReadFailure, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, wire.SessionSize)
	for {
		if err := readFull(conn, buf, 0); err != nil {
			return err
		}
		session, err := wire.UnmarshalSession(buf)
		if err != nil {
			return status.Wrap("satellite.broadcaster_consumer.unmarshal", status.ErrIncompleteData, err)
		}

		if task, ok := c.server.taskByID(uint64(session.SatelliteTaskID)); ok {
			task.broadcast.update(session.OnRadarRevision, session.InSightRevision, session.OnMapRevision)
		} else {
			logger.WarnCtx(ctx, "broadcaster record for unknown task", "task", session.SatelliteTaskID)
		}

		if err := writeFull(conn, wire.MarshalReceiptID(session.ReceiptID), writeTimeout); err != nil {
			return err
		}
	}
}
