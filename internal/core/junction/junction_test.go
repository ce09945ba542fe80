package junction

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflux-io/engine/internal/core/event"
)

func intMeta() *event.MetaStreamEvent {
	return event.NewMetaStreamEvent("In", []event.Attribute{{Name: "v", Type: event.TypeInt}})
}

type recordingSubscriber struct {
	mu   sync.Mutex
	seen []int32
}

func (r *recordingSubscriber) Process(chunk *event.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cur := chunk; cur != nil; cur = cur.Next {
		r.seen = append(r.seen, cur.BeforeWindowData[0].AsInt())
	}
}

func (r *recordingSubscriber) values() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int32, len(r.seen))
	copy(out, r.seen)
	return out
}

func TestSyncJunctionDeliversInOrder(t *testing.T) {
	j := New(Config{StreamName: "In"}, intMeta())
	sub := &recordingSubscriber{}
	j.Subscribe(sub)

	for i := int32(1); i <= 4; i++ {
		require.NoError(t, j.Publish(event.New(int64(i), []event.AttributeValue{event.Int(i)})))
	}

	assert.Equal(t, []int32{1, 2, 3, 4}, sub.values())
}

func TestSyncJunctionFanOutDoesNotAlias(t *testing.T) {
	j := New(Config{StreamName: "In"}, intMeta())
	subA, subB := &recordingSubscriber{}, &recordingSubscriber{}
	j.Subscribe(subA)
	j.Subscribe(subB)

	require.NoError(t, j.Publish(event.New(1, []event.AttributeValue{event.Int(7)})))

	assert.Equal(t, int32(7), subA.values()[0])
	assert.Equal(t, int32(7), subB.values()[0])
}

func TestAsyncJunctionDeliversAll(t *testing.T) {
	j := New(Config{StreamName: "In", Async: true, BufferSize: 8, Workers: 1}, intMeta())
	require.NoError(t, j.Start())
	defer j.Stop()

	sub := &recordingSubscriber{}
	j.Subscribe(sub)

	for i := int32(1); i <= 5; i++ {
		require.NoError(t, j.Publish(event.New(int64(i), []event.AttributeValue{event.Int(i)})))
	}

	require.Eventually(t, func() bool {
		return len(sub.values()) == 5
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncJunctionPublishFailsUntilStarted(t *testing.T) {
	j := New(Config{StreamName: "In", Async: true, BufferSize: 1, Overflow: DropNewest}, intMeta())
	err := j.Publish(event.New(1, []event.AttributeValue{event.Int(1)}))
	require.Error(t, err)
}
