package mmps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetData(t *testing.T) {
	t.Run("RoundTripsWithinOneBuffer", func(t *testing.T) {
		pool, _ := newTestPool(t, 64, 2)

		buf, err := pool.PeekBuffer(1)
		require.NoError(t, err)

		_, err = pool.PutData(buf, []byte("hello"))
		require.NoError(t, err)

		buf.ResetCursor()
		dst := make([]byte, 5)
		_, n, err := pool.GetData(buf, dst)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", string(dst))
	})

	t.Run("WriteSpansMultipleBuffersByAutoExtending", func(t *testing.T) {
		pool, _ := newTestPool(t, 4, 4)

		buf, err := pool.PeekBuffer(1)
		require.NoError(t, err)

		payload := []byte("0123456789")
		last, err := pool.PutData(buf, payload)
		require.NoError(t, err)
		assert.NotSame(t, buf, last)
		assert.Equal(t, 10, TotalDataSize(buf))

		buf.ResetCursor()
		dst := make([]byte, len(payload))
		_, n, err := pool.GetData(buf, dst)
		require.NoError(t, err)
		assert.Equal(t, len(payload), n)
		assert.Equal(t, string(payload), string(dst))
	})

	t.Run("ExhaustsPoolWhenChainCannotExtend", func(t *testing.T) {
		pool, _ := newTestPool(t, 4, 1)

		buf, err := pool.PeekBuffer(1)
		require.NoError(t, err)

		_, err = pool.PutData(buf, []byte("01234567"))
		assert.ErrorIs(t, err, ErrOutOfMemory)
	})
}

func TestPutGetInts(t *testing.T) {
	pool, _ := newTestPool(t, 32, 1)
	buf, err := pool.PeekBuffer(1)
	require.NoError(t, err)

	_, err = pool.PutUint8(buf, 0xAB)
	require.NoError(t, err)
	_, err = pool.PutUint16(buf, 0x1234)
	require.NoError(t, err)
	_, err = pool.PutUint32(buf, 0xDEADBEEF)
	require.NoError(t, err)
	_, err = pool.PutUint64(buf, 0x0102030405060708)
	require.NoError(t, err)

	buf.ResetCursor()

	_, v8, err := pool.GetUint8(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), v8)

	_, v16, err := pool.GetUint16(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	_, v32, err := pool.GetUint32(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v32)

	_, v64, err := pool.GetUint64(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), v64)
}

func TestMoveCursorRelative(t *testing.T) {
	pool, _ := newTestPool(t, 4, 3)
	buf, err := pool.PeekBuffer(1)
	require.NoError(t, err)
	_, err = pool.PutData(buf, []byte("01234567"))
	require.NoError(t, err)
	buf.ResetCursor()

	landed, err := MoveCursorRelative(buf, 6)
	require.NoError(t, err)
	assert.NotSame(t, buf, landed)

	_, err = MoveCursorRelative(buf, 1000)
	assert.ErrorIs(t, err, ErrCursorOutOfData)
}

func TestIsCursorAtTheEndOfData(t *testing.T) {
	pool, _ := newTestPool(t, 8, 1)
	buf, err := pool.PeekBuffer(1)
	require.NoError(t, err)

	assert.True(t, buf.IsCursorAtTheEndOfData(), "fresh buffer has no data")

	_, err = pool.PutData(buf, []byte("ab"))
	require.NoError(t, err)
	assert.True(t, buf.IsCursorAtTheEndOfData(), "cursor follows the write")

	buf.ResetCursor()
	assert.False(t, buf.IsCursorAtTheEndOfData())
}
