package checkpoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHolder struct {
	state    int
	failSave bool
}

func (h *fakeHolder) SerializeState(hints map[string]any) ([]byte, error) {
	if h.failSave {
		return nil, errors.New("boom")
	}
	return []byte{byte(h.state)}, nil
}

func (h *fakeHolder) DeserializeState(payload []byte) error {
	if len(payload) != 1 {
		return errors.New("bad payload")
	}
	h.state = int(payload[0])
	return nil
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewSnapshotService("app1", store, false)

	a := &fakeHolder{state: 2}
	b := &fakeHolder{state: 4}
	svc.Register("windowA", a)
	svc.Register("windowB", b)

	report, err := svc.Persist("1000")
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 0, report.FailureCount)

	// Mutate in-memory state, then restore should bring it back.
	a.state, b.state = 99, 99
	require.NoError(t, svc.Restore("1000"))
	assert.Equal(t, 2, a.state)
	assert.Equal(t, 4, b.state)
}

func TestPersistPartialFailureIsFailure(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewSnapshotService("app1", store, false)

	svc.Register("good", &fakeHolder{state: 1})
	svc.Register("bad", &fakeHolder{failSave: true})

	report, err := svc.Persist("1000")
	require.Error(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	assert.Contains(t, report.Failed, "bad")

	// A failed Persist must not leave an authoritative revision behind.
	_, ok, err := store.GetLastRevision("app1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreMissingHolderIsWarningNotError(t *testing.T) {
	store := NewInMemoryStore()
	producer := NewSnapshotService("app1", store, false)
	producer.Register("renamed-later", &fakeHolder{state: 7})
	_, err := producer.Persist("1000")
	require.NoError(t, err)

	consumer := NewSnapshotService("app1", store, false)
	consumer.Register("still-here", &fakeHolder{state: 1})
	require.NoError(t, consumer.Restore("1000"))
}

func TestPersistWithCompression(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewSnapshotService("app1", store, true)
	h := &fakeHolder{state: 5}
	svc.Register("h", h)

	_, err := svc.Persist("2000")
	require.NoError(t, err)

	h.state = 0
	require.NoError(t, svc.Restore("2000"))
	assert.Equal(t, 5, h.state)
}

func TestLastRevisionTracksMostRecentSave(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save("app1", "1000", []byte("a")))
	require.NoError(t, store.Save("app1", "2000", []byte("b")))

	svc := NewSnapshotService("app1", store, false)
	rev, ok, err := svc.LastRevision()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2000", rev)
}
