package window

import (
	"sort"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
)

// SortDirection is the enum-like "asc"/"desc" window argument, validated
// case-insensitively at parse time (spec §4.2.1 (b)).
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortWindow keeps the best N events by a sort attribute; once the buffer
// exceeds N, the worst-ranked event is evicted and expired (spec §4.2.1:
// "sorted buffer size <= N; on arrival if size > N, evict worst").
type SortWindow struct {
	base
	size      int
	attrIndex int
	dir       SortDirection
	buf       []*event.StreamEvent
}

func NewSortWindow(size, attrIndex int, dir SortDirection) *SortWindow {
	return &SortWindow{size: size, attrIndex: attrIndex, dir: dir}
}

func (w *SortWindow) less(a, b *event.StreamEvent) bool {
	av := a.BeforeWindowData[w.attrIndex]
	bv := b.BeforeWindowData[w.attrIndex]
	cmp, ok := av.Compare(bv)
	if !ok {
		return false
	}
	if w.dir == Ascending {
		return cmp < 0
	}
	return cmp > 0
}

func (w *SortWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		w.buf = append(w.buf, cur)
		sort.SliceStable(w.buf, func(i, j int) bool { return w.less(w.buf[i], w.buf[j]) })
		out = appendChunk(out, cur)

		if len(w.buf) > w.size {
			worst := w.buf[len(w.buf)-1]
			w.buf = w.buf[:len(w.buf)-1]
			out = appendChunk(out, expiredCopyOf(worst))
		}
		cur = next
	}
	w.mu.Unlock()
	w.emit("sort", out)
}

func (w *SortWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeDefault }
func (w *SortWindow) Clone() processor.Processor {
	nw := NewSortWindow(w.size, w.attrIndex, w.dir)
	nw.SetQueryID(w.queryID)
	return nw
}
