package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

func actorIDs(cmds []Command) []string {
	ids := make([]string, len(cmds))
	for i, cmd := range cmds {
		ids[i] = cmd.ActorID
	}
	return ids
}

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{ActorID: "a", Type: CommandStop},
		{ActorID: "b", Type: CommandClearGoal},
		{ActorID: "c", Type: CommandSetGoal, Goal: &GoalCommand{X: 1, Y: 2}},
	}
	for _, cmd := range cmds {
		require.True(t, buffer.Push(cmd), "push %s", cmd.ActorID)
	}
	assert.False(t, buffer.Push(Command{ActorID: "overflow"}), "push into a full buffer")
	assert.Equal(t, cmds, buffer.Drain())

	require.True(t, buffer.Push(Command{ActorID: "d"}))
	require.True(t, buffer.Push(Command{ActorID: "e"}))
	assert.Equal(t, []string{"d", "e"}, actorIDs(buffer.Drain()))
	assert.Zero(t, buffer.Len())
}

func TestCommandBufferOverflowIsCounted(t *testing.T) {
	registry := &logging.Metrics{}
	buffer := NewCommandBuffer(1, telemetry.WrapMetrics(registry))
	require.True(t, buffer.Push(Command{ActorID: "one"}))
	assert.False(t, buffer.Push(Command{ActorID: "two"}))

	snapshot := registry.Snapshot()
	assert.Equal(t, uint64(1), snapshot[commandBufferOverflowMetricKey])
	assert.Equal(t, uint64(1), snapshot[commandBufferOccupancyMetricKey])

	assert.Equal(t, []string{"one"}, actorIDs(buffer.Drain()))
	assert.Equal(t, uint64(0), registry.Snapshot()[commandBufferOccupancyMetricKey])
}

func TestCommandBufferNilReceiver(t *testing.T) {
	var buffer *CommandBuffer
	assert.False(t, buffer.Push(Command{}))
	assert.Nil(t, buffer.Drain())
	assert.Zero(t, buffer.Len())
	assert.Zero(t, buffer.Capacity())
}
