package satellite

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "Accepted", StateAccepted.String())
	assert.Equal(t, "RegularLoop", StateRegularLoop.String())
	assert.Equal(t, "Unknown", State(99).String())
}

func TestTaskRegisterPaquet(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	task := NewTask(server, nil, nil, nil)
	assert.Equal(t, StateAccepted, task.State())

	err := task.registerPaquet(1, func() {})
	require.NoError(t, err)

	err = task.registerPaquet(1, func() {})
	require.Error(t, err, "duplicate paquet id must be rejected")

	task.unregisterPaquet(1)
	err = task.registerPaquet(1, func() {})
	require.NoError(t, err, "id is free again after unregister")

	cancelled := false
	err = task.registerPaquet(2, func() { cancelled = true })
	require.NoError(t, err)

	task.terminate(context.Background())
	assert.True(t, cancelled, "terminate must cancel every still-registered paquet")
	assert.Equal(t, StateTerminated, task.State())
}
