package satellite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplaque/satellite/pkg/mmps"
)

func newTestPaquet(t *testing.T, pool *mmps.Pool, task *Task) *Paquet {
	t.Helper()
	return &Paquet{task: task, pool: pool, id: 1}
}

func TestHandlePlaqueAck(t *testing.T) {
	pool := newTestPool(t)
	p := newTestPaquet(t, pool, &Task{})

	out, err := handlePlaqueAck(context.Background(), p)
	require.NoError(t, err)
	defer pool.PokeBuffer(out)

	_, code, err := pool.GetUint32(out)
	require.NoError(t, err)
	assert.Equal(t, resultOK, code)
}

func TestHandleEmptyPlaqueListing(t *testing.T) {
	pool := newTestPool(t)
	p := newTestPaquet(t, pool, &Task{})

	out, err := handleEmptyPlaqueListing(context.Background(), p)
	require.NoError(t, err)
	defer pool.PokeBuffer(out)

	_, count, err := pool.GetUint32(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}

// handleBroadcastSubscribe reads the session's current revisions from
// Store before computing missing (see broadcast.go's seed), so it is not
// store-independent like the handlers above and, like
// handleValidateProfileName, handleCreateProfile, and
// handleNotificationsToken, has no test in this package. The rendezvous
// math itself (clamping, missing computation, immediate-vs-wait, and
// the seed-before-first-update fix) is covered directly in
// broadcast_test.go, which needs no Store or buffer pool.

func TestReadString(t *testing.T) {
	pool := newTestPool(t)
	buf, err := pool.PeekBuffer(1)
	require.NoError(t, err)
	defer pool.PokeBuffer(buf)

	cursor, err := pool.PutUint32(buf, 5)
	require.NoError(t, err)
	_, err = pool.PutData(cursor, []byte("hello"))
	require.NoError(t, err)

	got, _, err := readString(pool, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}
