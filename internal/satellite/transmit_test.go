package satellite

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

func newTestPool(t *testing.T) *mmps.Pool {
	t.Helper()
	pool := mmps.NewPool(1)
	_, err := pool.InitBank(0, 64, 0, 8)
	require.NoError(t, err)
	return pool
}

func TestReadWriteFull(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := []byte("hello, paquet")
	go func() {
		_ = writeFull(client, payload, time.Second)
	}()

	buf := make([]byte, len(payload))
	require.NoError(t, readFull(server, buf, time.Second))
	assert.Equal(t, payload, buf)
}

func TestReadFullTimesOut(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	buf := make([]byte, 4)
	err := readFull(server, buf, 10*time.Millisecond)
	require.Error(t, err)
}

func TestPilotRoundTripsOverConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	pilot := wire.PaquetPilot{
		Signature:      wire.PilotSignature,
		PaquetID:       7,
		CommandCode:    wire.CommandReportMessage,
		CommandSubcode: wire.SubcodeNone,
		PayloadSize:    0,
	}

	go func() {
		_ = writeFull(client, pilot.Marshal(), time.Second)
	}()

	got, err := receivePilot(server)
	require.NoError(t, err)
	assert.Equal(t, pilot, got)
}

func TestSendAndReceivePayload(t *testing.T) {
	pool := newTestPool(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	data := make([]byte, 130) // spans more than one 64-byte buffer
	for i := range data {
		data[i] = byte(i)
	}

	go func() {
		_ = writeFull(client, data, time.Second)
	}()

	chain, err := receivePayload(pool, server, 1, uint32(len(data)))
	require.NoError(t, err)
	defer pool.PokeBuffer(chain)

	assert.Equal(t, len(data), mmps.TotalDataSize(chain))

	got := make([]byte, len(data))
	_, n, err := pool.GetData(chain, got)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, got)
}
