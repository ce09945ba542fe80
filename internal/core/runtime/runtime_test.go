package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubStoppable struct{ stopped bool }

func (s *stubStoppable) Stop() error { s.stopped = true; return nil }

type stubDrainable struct{ drained bool }

func (d *stubDrainable) Drain(ctx context.Context) error { d.drained = true; return nil }

type stubFlushable struct{ flushed bool }

func (f *stubFlushable) Flush() error { f.flushed = true; return nil }

func TestShutdownRunsStagesInOrder(t *testing.T) {
	c := NewShutdownCoordinator()
	src := &stubStoppable{}
	junc := &stubDrainable{}
	sink := &stubFlushable{}
	c.AddSource(src)
	c.AddJunction(junc)
	c.AddSink(sink)

	assert.NoError(t, c.Shutdown(time.Second))
	assert.True(t, src.stopped)
	assert.True(t, junc.drained)
	assert.True(t, sink.flushed)
}

type failingStoppable struct{}

func (failingStoppable) Stop() error { return errors.New("stop failed") }

func TestShutdownContinuesAfterStageFailure(t *testing.T) {
	c := NewShutdownCoordinator()
	c.AddSource(failingStoppable{})
	sink := &stubFlushable{}
	c.AddSink(sink)

	err := c.Shutdown(time.Second)
	assert.Error(t, err)
	assert.True(t, sink.flushed, "later stages must still run after an earlier stage fails")
}

type checker struct{ err error }

func (c checker) ValidateConnectivity() error { return c.err }

func TestCheckHealthAggregates(t *testing.T) {
	h := CheckHealth(map[string]ConnectivityChecker{
		"source-a": checker{},
		"sink-b":   checker{err: errors.New("unreachable")},
	})

	assert.False(t, h.Live)
	assert.NoError(t, h.Components["source-a"])
	assert.Error(t, h.Components["sink-b"])
}
