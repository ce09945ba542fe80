package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLengthWindowCheckpointRoundTrip is property P4/scenario S5 applied
// directly to the window's StateHolder implementation: serialize, mutate,
// deserialize, and the window must behave as if it had never been touched.
func TestLengthWindowCheckpointRoundTrip(t *testing.T) {
	w := NewLengthWindow(2)
	w.Process(streamEventOf(1))
	w.Process(streamEventOf(2))

	snap, err := w.SerializeState(nil)
	require.NoError(t, err)

	// Mutate further, then restore from the snapshot.
	w.Process(streamEventOf(3))
	require.NoError(t, w.DeserializeState(snap))

	var received []int32
	var expiredCount int
	w.SetNext(callbackCounter(&received, &expiredCount))
	w.Process(streamEventOf(4))

	// Restored buffer held {1,2}; admitting 4 evicts 1.
	assert.Equal(t, []int32{4}, received)
	assert.Equal(t, 1, expiredCount)
}

func TestLengthBatchWindowCheckpointRoundTrip(t *testing.T) {
	w := NewLengthBatchWindow(2)
	w.Process(streamEventOf(1))
	w.Process(streamEventOf(2)) // completes first batch

	snap, err := w.SerializeState(nil)
	require.NoError(t, err)

	fresh := NewLengthBatchWindow(2)
	require.NoError(t, fresh.DeserializeState(snap))

	var received []int32
	var expiredCount int
	fresh.SetNext(callbackCounter(&received, &expiredCount))
	fresh.Process(streamEventOf(3))
	fresh.Process(streamEventOf(4)) // completes second batch, expires first

	assert.Equal(t, []int32{3, 4}, received)
	assert.Equal(t, 2, expiredCount)
}
