package window

import (
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// TimeWindow keeps a deque ordered by timestamp and expires events older
// than the duration on a scheduler tick (spec §4.2.1: "deque ordered by ts;
// scheduler tick when head ts < now-D").
type TimeWindow struct {
	base
	duration time.Duration
	sched    *scheduler.Scheduler
	deque    []*event.StreamEvent // oldest first
}

// NewTimeWindow builds a time(D) window driven by sched. Every CURRENT
// arrival schedules its own expiry timer rather than relying on a single
// periodic tick, since deadlines are per-event.
func NewTimeWindow(duration time.Duration, sched *scheduler.Scheduler) *TimeWindow {
	return &TimeWindow{duration: duration, sched: sched}
}

func (w *TimeWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		out = appendChunk(out, cur)
		w.deque = append(w.deque, cur)
		w.mu.Unlock()
		w.sched.AfterFunc(w.duration, w.expireOne)
		w.mu.Lock()
		cur = next
	}
	w.mu.Unlock()
	w.emit("time", out)
}

// expireOne runs on the scheduler's goroutine once a single event's deadline
// has elapsed; it evicts the current deque head (FIFO order matches
// scheduling order since deadlines only grow) and forwards a synthesized
// EXPIRED copy downstream on its own.
func (w *TimeWindow) expireOne() {
	w.mu.Lock()
	if len(w.deque) == 0 {
		w.mu.Unlock()
		return
	}
	evicted := w.deque[0]
	w.deque = w.deque[1:]
	w.mu.Unlock()

	w.emit("time", expiredCopyOf(evicted))
}

func (w *TimeWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeDefault }
func (w *TimeWindow) Clone() processor.Processor {
	nw := NewTimeWindow(w.duration, w.sched)
	nw.SetQueryID(w.queryID)
	return nw
}
