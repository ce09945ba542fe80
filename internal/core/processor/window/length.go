package window

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
)

// LengthWindow keeps a ring buffer of the last N CURRENT events; once full,
// each new arrival evicts and expires the oldest (spec §4.2.1: "ring buffer
// of N ... on arrival once full").
type LengthWindow struct {
	base
	size int
	buf  []*event.StreamEvent // oldest first
}

func NewLengthWindow(size int) *LengthWindow {
	return &LengthWindow{size: size}
}

func (w *LengthWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		out = appendChunk(out, cur)
		w.buf = append(w.buf, cur)
		if len(w.buf) > w.size {
			evicted := w.buf[0]
			w.buf = w.buf[1:]
			out = appendChunk(out, expiredCopyOf(evicted))
		}
		cur = next
	}
	w.mu.Unlock()
	w.emit("length", out)
}

func (w *LengthWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeDefault }
func (w *LengthWindow) Clone() processor.Processor {
	nw := NewLengthWindow(w.size)
	nw.SetQueryID(w.queryID)
	return nw
}

// SerializeState implements checkpoint.StateHolder: the ring buffer's
// contents are the entirety of this window's state (spec §4.7, C8).
func (w *LengthWindow) SerializeState(hints map[string]any) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return encodeWireEvents(w.buf)
}

// DeserializeState replaces the ring buffer from a prior snapshot.
func (w *LengthWindow) DeserializeState(payload []byte) error {
	events, err := decodeWireEvents(payload)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.buf = events
	w.mu.Unlock()
	return nil
}
