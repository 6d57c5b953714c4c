package broadcaster

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/wire"
)

// Listener-side timeouts: how long a connected consumer may idle before
// the listener gives up waiting for new work and re-checks ctx, and how
// long a single write/read has to complete.
const (
	idleWait  = 1 * time.Second
	ioTimeout = 5 * time.Second
)

// listener accepts a single Satellite consumer connection at a time on a
// loopback port and drains the desk onto it, per §4.D's listener thread.
type listener struct {
	ln   net.Listener
	desk *desk
}

func newListener(ln net.Listener, desk *desk) *listener {
	return &listener{ln: ln, desk: desk}
}

// run accepts connections until ctx is cancelled, serving one at a time;
// a consumer that drops is simply re-accepted, with whatever is still on
// the desk retried on the new connection.
func (l *listener) run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WarnCtx(ctx, "broadcaster listener: accept failed", "error", err)
			continue
		}
		l.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
	}
}

// serve drains the desk onto conn until the connection fails or ctx is
// cancelled, then returns so run can accept the next consumer.
func (l *listener) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.desk.semaphore:
		case <-time.After(idleWait):
		}

		batch := l.desk.snapshot()
		for _, session := range batch {
			if err := writeFull(conn, session.Marshal(), ioTimeout); err != nil {
				logger.WarnCtx(ctx, "broadcaster listener: transmit failed", "error", err)
				return
			}
			receiptBuf := make([]byte, 8)
			if err := readFull(conn, receiptBuf, ioTimeout); err != nil {
				logger.WarnCtx(ctx, "broadcaster listener: ack read failed", "error", err)
				return
			}
			receiptID, err := wire.UnmarshalReceiptID(receiptBuf)
			if err != nil {
				logger.WarnCtx(ctx, "broadcaster listener: malformed ack", "error", err)
				return
			}
			l.desk.ack(receiptID)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// writeFull writes the full buffer to conn, deadline-gated by timeout.
func writeFull(conn net.Conn, buf []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := conn.Write(buf)
	return err
}

// readFull reads exactly len(buf) bytes from conn, deadline-gated by
// timeout.
func readFull(conn net.Conn, buf []byte, timeout time.Duration) error {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := io.ReadFull(conn, buf)
	return err
}
