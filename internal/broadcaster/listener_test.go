package broadcaster

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geoplaque/satellite/internal/wire"
)

func TestListenerDrainsDeskToConsumer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := newDesk()
	l := newListener(ln, d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.run(ctx)

	d.markDelivering([]wire.Session{{ReceiptID: 1, SessionID: 42, SatelliteTaskID: 7}})

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, wire.SessionSize)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = readFullForTest(conn, buf)
	require.NoError(t, err)

	session, err := wire.UnmarshalSession(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(42), session.SessionID)
	require.Equal(t, uint32(7), session.SatelliteTaskID)

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Write(wire.MarshalReceiptID(session.ReceiptID))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return d.remaining([]uint64{1}) == 0
	}, time.Second, 10*time.Millisecond)
}

func readFullForTest(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
