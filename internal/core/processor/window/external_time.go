package window

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
)

// ExternalTimeWindow keys its deque off an event-provided timestamp
// attribute rather than arrival time, and expires eagerly on each arrival
// rather than waiting on a scheduler tick (spec §4.2.1: "deque keyed by
// event-provided ts; on arrival: expire all with ts < max-D").
type ExternalTimeWindow struct {
	base
	attrIndex int
	duration  int64 // same unit as the timestamp attribute (ms, by convention)
	deque     []*event.StreamEvent
	maxTS     int64
}

func NewExternalTimeWindow(attrIndex int, duration int64) *ExternalTimeWindow {
	return &ExternalTimeWindow{attrIndex: attrIndex, duration: duration}
}

func (w *ExternalTimeWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		ts, ok := w.tsOf(cur)
		if !ok {
			cur = next
			continue
		}
		if ts > w.maxTS {
			w.maxTS = ts
		}
		w.deque = append(w.deque, cur)
		out = appendChunk(out, cur)

		threshold := w.maxTS - w.duration
		for len(w.deque) > 0 {
			headTS, _ := w.tsOf(w.deque[0])
			if headTS >= threshold {
				break
			}
			out = appendChunk(out, expiredCopyOf(w.deque[0]))
			w.deque = w.deque[1:]
		}
		cur = next
	}
	w.mu.Unlock()
	w.emit("externaltime", out)
}

func (w *ExternalTimeWindow) tsOf(se *event.StreamEvent) (int64, bool) {
	if w.attrIndex < 0 || w.attrIndex >= len(se.BeforeWindowData) {
		return 0, false
	}
	v := se.BeforeWindowData[w.attrIndex]
	f, ok := v.AsFloat64()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func (w *ExternalTimeWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeDefault }
func (w *ExternalTimeWindow) Clone() processor.Processor {
	nw := NewExternalTimeWindow(w.attrIndex, w.duration)
	nw.SetQueryID(w.queryID)
	return nw
}
