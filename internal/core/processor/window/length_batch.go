package window

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
)

// LengthBatchWindow buffers events and, once every Nth arrival, emits the
// whole batch as CURRENT followed by an EXPIRED copy of the previous batch,
// then starts a fresh buffer (spec §4.2.1: "count + buffer; every Nth event,
// emit batch then expire all").
type LengthBatchWindow struct {
	base
	size       int
	buf        []*event.StreamEvent
	prevBatch  []*event.StreamEvent
}

func NewLengthBatchWindow(size int) *LengthBatchWindow {
	return &LengthBatchWindow{size: size}
}

func (w *LengthBatchWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		w.buf = append(w.buf, cur)
		if len(w.buf) == w.size {
			for _, e := range w.buf {
				out = appendChunk(out, e)
			}
			for _, prev := range w.prevBatch {
				out = appendChunk(out, expiredCopyOf(prev))
			}
			w.prevBatch = w.buf
			w.buf = nil
		}
		cur = next
	}
	w.mu.Unlock()
	w.emit("lengthbatch", out)
}

func (w *LengthBatchWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeBatch }
func (w *LengthBatchWindow) Clone() processor.Processor {
	nw := NewLengthBatchWindow(w.size)
	nw.SetQueryID(w.queryID)
	return nw
}

// batchState is the gob-encodable envelope for LengthBatchWindow: both the
// in-progress buffer and the previous completed batch must survive restore,
// since the previous batch is still owed an EXPIRED pairing on the next
// full batch (spec §4.2.1).
type batchState struct {
	Buf       []byte
	PrevBatch []byte
}

// SerializeState implements checkpoint.StateHolder.
func (w *LengthBatchWindow) SerializeState(hints map[string]any) ([]byte, error) {
	w.mu.Lock()
	buf, prev := w.buf, w.prevBatch
	w.mu.Unlock()

	bufBytes, err := encodeWireEvents(buf)
	if err != nil {
		return nil, err
	}
	prevBytes, err := encodeWireEvents(prev)
	if err != nil {
		return nil, err
	}
	return encodeBatchState(batchState{Buf: bufBytes, PrevBatch: prevBytes})
}

// DeserializeState restores both halves of the batch state.
func (w *LengthBatchWindow) DeserializeState(payload []byte) error {
	state, err := decodeBatchState(payload)
	if err != nil {
		return err
	}
	buf, err := decodeWireEvents(state.Buf)
	if err != nil {
		return err
	}
	prev, err := decodeWireEvents(state.PrevBatch)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.buf, w.prevBatch = buf, prev
	w.mu.Unlock()
	return nil
}
