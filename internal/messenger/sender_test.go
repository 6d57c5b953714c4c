package messenger

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
)

func newTestSender(t *testing.T, mode BatchMode) (*Sender, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	sender := NewSender(SenderConfig{Mode: mode})
	sender.dial = func() (net.Conn, error) { return client, nil }
	sender.attach(&queue{}, &queue{})
	sender.conn = client
	return sender, server
}

func TestSenderDeliverLegacyMovesToSentAndReadsNoResponse(t *testing.T) {
	sender, server := newTestSender(t, BatchModeLegacy)
	server.SetReadDeadline(time.Now().Add(2 * time.Second))

	n := &Notification{ID: 1}
	buf := make([]byte, wire.DeviceTokenSize)
	copy(n.DeviceToken[:], buf)

	done := make(chan error, 1)
	go func() { done <- sender.deliverBatch(context.Background(), []*Notification{n}) }()

	header := make([]byte, 1+2+wire.DeviceTokenSize+2)
	_, err := readAllForTest(server, header)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), header[0]) // legacy command

	err = <-done
	assert.NoError(t, err)
	assert.Equal(t, int64(1), sender.sent.drain()[0].ID)
}

func TestSenderDeliverFrameWritesFrameHeader(t *testing.T) {
	sender, server := newTestSender(t, BatchModeFrame)
	server.SetReadDeadline(time.Now().Add(2 * time.Second))

	n := &Notification{ID: 2}
	done := make(chan error, 1)
	go func() { done <- sender.deliverBatch(context.Background(), []*Notification{n}) }()

	// A single large-enough Read drains the whole frame write in one
	// shot; a short Read would leave the sender's Write blocked on bytes
	// this test never comes back to consume.
	buf := make([]byte, 256)
	n2, err := server.Read(buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n2, 5)
	assert.Equal(t, uint8(2), buf[0]) // frame command

	err = <-done
	assert.NoError(t, err)
}

func TestClassifyAndBackoffDisconnects(t *testing.T) {
	sender, _ := newTestSender(t, BatchModeLegacy)
	require.NoError(t, sender.ensureConnected(context.Background()))
	require.NotNil(t, sender.conn)

	sender.classifyAndBackoff(context.Background(), status.New("test.busy", status.ErrAPNsBusy))
	assert.Nil(t, sender.conn)
}

func readAllForTest(conn net.Conn, buf []byte) (int, error) {
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
