package mmps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOperations(t *testing.T) {
	t.Run("ExtendAppendsWithinSameBank", func(t *testing.T) {
		pool, _ := newTestPool(t, 8, 4)

		first, err := pool.PeekBuffer(1)
		require.NoError(t, err)

		second, err := pool.Extend(first)
		require.NoError(t, err)

		assert.Same(t, second, first.Next())
		assert.Same(t, first, second.Previous())
		assert.Same(t, first, second.First())
		assert.Same(t, second, first.Last())
	})

	t.Run("ExtendIsIdempotentWhenAlreadyChained", func(t *testing.T) {
		pool, _ := newTestPool(t, 8, 4)

		first, err := pool.PeekBuffer(1)
		require.NoError(t, err)
		second, err := pool.Extend(first)
		require.NoError(t, err)

		again, err := pool.Extend(first)
		require.NoError(t, err)
		assert.Same(t, second, again)
	})

	t.Run("RemoveFromChainReanchors", func(t *testing.T) {
		pool, _ := newTestPool(t, 8, 4)

		first, err := pool.PeekBuffer(1)
		require.NoError(t, err)
		second, err := pool.Extend(first)
		require.NoError(t, err)
		third, err := pool.Extend(second)
		require.NoError(t, err)

		newAnchor := RemoveFromChain(first, second)
		assert.Same(t, first, newAnchor)
		assert.Same(t, third, first.Next())
		assert.Same(t, first, third.Previous())
	})

	t.Run("TruncateChainReleasesTail", func(t *testing.T) {
		pool, bank := newTestPool(t, 8, 4)

		first, err := pool.PeekBuffer(1)
		require.NoError(t, err)
		second, err := pool.Extend(first)
		require.NoError(t, err)
		_, err = pool.Extend(second)
		require.NoError(t, err)

		pool.TruncateChain(first)
		assert.Nil(t, first.Next())

		inUse, err := pool.NumberOfBuffersInUse(bank.id)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), inUse)
	})

	t.Run("PokeBufferDisassemblesChainAcrossBanks", func(t *testing.T) {
		pool := NewPool(2)
		_, err := pool.InitBank(0, 8, 0, 2)
		require.NoError(t, err)
		_, err = pool.InitBank(1, 16, 0, 2)
		require.NoError(t, err)

		a, err := pool.PeekBufferFromBank(0, 1)
		require.NoError(t, err)
		b, err := pool.PeekBufferFromBank(1, 1)
		require.NoError(t, err)
		Append(a, b)

		pool.PokeBuffer(a)

		inUseA, err := pool.NumberOfBuffersInUse(0)
		require.NoError(t, err)
		inUseB, err := pool.NumberOfBuffersInUse(1)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), inUseA)
		assert.Equal(t, uint32(0), inUseB)
	})

	t.Run("TotalDataSizeSumsChain", func(t *testing.T) {
		pool, _ := newTestPool(t, 8, 4)

		first, err := pool.PeekBuffer(1)
		require.NoError(t, err)
		_, err = pool.PutData(first, []byte("0123456789"))
		require.NoError(t, err)

		assert.Equal(t, 10, TotalDataSize(first))
	})

	t.Run("CopyBufferCopiesAcrossChain", func(t *testing.T) {
		pool, _ := newTestPool(t, 8, 4)

		src, err := pool.PeekBuffer(1)
		require.NoError(t, err)
		_, err = pool.PutData(src, []byte("0123456789ab"))
		require.NoError(t, err)

		dst, err := pool.PeekBuffer(2)
		require.NoError(t, err)
		_, err = pool.Extend(dst)
		require.NoError(t, err)

		n := CopyBuffer(dst, src)
		assert.Equal(t, 12, n)
	})
}
