package messenger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuePushDrain(t *testing.T) {
	q := &queue{}
	assert.Equal(t, 0, q.len())

	q.push(&Notification{ID: 1})
	q.pushAll([]*Notification{{ID: 2}, {ID: 3}})
	assert.Equal(t, 3, q.len())

	drained := q.drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, 0, q.len())
	assert.Empty(t, q.drain())
}

func TestQueueMoveAllTo(t *testing.T) {
	src := &queue{}
	dst := &queue{}
	src.push(&Notification{ID: 1})
	src.push(&Notification{ID: 2})
	dst.push(&Notification{ID: 0})

	src.moveAllTo(dst)
	assert.Equal(t, 0, src.len())
	assert.Equal(t, 3, dst.len())

	ids := []int64{}
	for _, n := range dst.drain() {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []int64{0, 1, 2}, ids)
}
