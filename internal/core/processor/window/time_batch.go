package window

import (
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// TimeBatchWindow buffers events for a fixed period and, on every scheduler
// tick of that period, emits the whole buffer as CURRENT plus an EXPIRED
// copy of the previous period's batch (spec §4.2.1: "buffer + period start;
// scheduler tick every D").
type TimeBatchWindow struct {
	base
	duration  time.Duration
	sched     *scheduler.Scheduler
	buf       []*event.StreamEvent
	prevBatch []*event.StreamEvent
	armed     bool
}

func NewTimeBatchWindow(duration time.Duration, sched *scheduler.Scheduler) *TimeBatchWindow {
	return &TimeBatchWindow{duration: duration, sched: sched}
}

func (w *TimeBatchWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil
		w.buf = append(w.buf, cur)
		cur = next
	}
	needsArm := !w.armed
	if needsArm {
		w.armed = true
	}
	w.mu.Unlock()

	if needsArm {
		w.sched.AfterFunc(w.duration, w.flush)
	}
}

func (w *TimeBatchWindow) flush() {
	w.mu.Lock()
	var out *event.StreamEvent
	for _, e := range w.buf {
		out = appendChunk(out, e)
	}
	for _, prev := range w.prevBatch {
		out = appendChunk(out, expiredCopyOf(prev))
	}
	w.prevBatch = w.buf
	w.buf = nil
	w.armed = false
	w.mu.Unlock()

	w.emit("timebatch", out)
}

func (w *TimeBatchWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeBatch }
func (w *TimeBatchWindow) Clone() processor.Processor {
	nw := NewTimeBatchWindow(w.duration, w.sched)
	nw.SetQueryID(w.queryID)
	return nw
}
