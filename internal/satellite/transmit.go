package satellite

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// Timeouts for the client socket operations: read (pilot, paquet body)
// and write (begin-to-transmit).
const (
	pilotReadTimeout   = 10 * time.Second
	payloadReadTimeout = 10 * time.Second
	writeTimeout       = 10 * time.Second
)

// readFull reads exactly len(buf) bytes from conn, deadline-gated by
// timeout. A deadline or connection error both terminate the task; there
// is no equivalent of POLLERR/POLLHUP/POLLNVAL to distinguish once the
// standard library's net.Conn abstracts the poll away, so every read
// failure here is treated uniformly as a transport failure.
func readFull(conn net.Conn, buf []byte, timeout time.Duration) error {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return status.Wrap("satellite.read_full", status.ErrSocketReadFailure, err)
	}
	n, err := io.ReadFull(conn, buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return status.Wrap("satellite.read_full", status.ErrPollTimeout, err)
		}
		return status.Wrap("satellite.read_full", status.ErrSocketReadFailure, err)
	}
	if n == 0 {
		return status.New("satellite.read_full", status.ErrZeroBytesRead)
	}
	return nil
}

// writeFull writes the full buffer to conn, deadline-gated by timeout.
func writeFull(conn net.Conn, buf []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return status.Wrap("satellite.write_full", status.ErrSocketWriteFailure, err)
	}
	n, err := conn.Write(buf)
	if err != nil {
		return status.Wrap("satellite.write_full", status.ErrSocketWriteFailure, err)
	}
	if n != len(buf) {
		return status.New("satellite.write_full", status.ErrZeroBytesWritten)
	}
	return nil
}

// receivePilot reads and validates a PaquetPilot. A signature mismatch
// or any read failure terminates the dialogue, per §4.C.2.
func receivePilot(conn net.Conn) (wire.PaquetPilot, error) {
	buf := make([]byte, wire.PilotSize)
	if err := readFull(conn, buf, pilotReadTimeout); err != nil {
		return wire.PaquetPilot{}, err
	}
	pilot, err := wire.UnmarshalPilot(buf)
	if err != nil {
		return wire.PaquetPilot{}, status.Wrap("satellite.receive_pilot", status.ErrMissingPilot, err)
	}
	return pilot, nil
}

// receivePayload reads a pilot's payload directly into an MMPS buffer
// chain, extending as needed. Returns the chain head.
func receivePayload(pool *mmps.Pool, conn net.Conn, ownerID uint32, size uint32) (*mmps.Buffer, error) {
	head, err := pool.PeekBufferOfSize(int(size), ownerID)
	if err != nil {
		return nil, status.Wrap("satellite.receive_payload", status.ErrCannotAllocateInputBuffer, err)
	}

	remaining := int(size)
	cursor := head
	for remaining > 0 {
		chunk := head.BufferSize()
		if chunk > remaining {
			chunk = remaining
		}
		tmp := make([]byte, chunk)
		if err := readFull(conn, tmp, payloadReadTimeout); err != nil {
			pool.PokeBuffer(head)
			return nil, err
		}
		next, err := pool.PutData(cursor, tmp)
		if err != nil {
			pool.PokeBuffer(head)
			return nil, status.Wrap("satellite.receive_payload", status.ErrCannotExtendBuffer, err)
		}
		cursor = next
		remaining -= chunk
	}
	return head, nil
}

// sendPaquet builds a pilot for commandCode/paquetID carrying chain's
// total data size, then writes pilot followed by every buffer's data in
// order. The transmit mutex must be held by the caller so that sends
// from different paquet workers on the same task serialise.
func sendPaquet(conn net.Conn, paquetID, commandCode, subcode uint32, chain *mmps.Buffer) error {
	size := 0
	if chain != nil {
		size = mmps.TotalDataSize(chain)
	}

	pilot := wire.PaquetPilot{
		Signature:      wire.PilotSignature,
		PaquetID:       paquetID,
		CommandCode:    commandCode,
		CommandSubcode: subcode,
		PayloadSize:    uint32(size),
	}
	if err := writeFull(conn, pilot.Marshal(), writeTimeout); err != nil {
		return err
	}

	for b := chain; b != nil; b = b.Next() {
		if b.DataSize() == 0 {
			continue
		}
		if err := writeFull(conn, b.Data()[:b.DataSize()], writeTimeout); err != nil {
			return err
		}
	}
	return nil
}

// transmit acquires the task's transmit mutex before sending, so
// concurrent paquet workers never interleave writes on the same socket.
func (t *Task) transmit(paquetID, commandCode, subcode uint32, chain *mmps.Buffer) error {
	t.transmitMu.Lock()
	defer t.transmitMu.Unlock()
	return sendPaquet(t.conn, paquetID, commandCode, subcode, chain)
}

// rejectBusy echoes the pilot back with the reject-busy subcode and no
// payload, used when the task has no room for another paquet worker.
func (t *Task) rejectBusy(ctx context.Context, pilot wire.PaquetPilot) {
	if err := t.transmit(pilot.PaquetID, pilot.CommandCode, wire.SubcodePaquetRejectBusy, nil); err != nil {
		logger.WarnCtx(ctx, "failed to transmit reject-busy", "error", err)
	}
}
