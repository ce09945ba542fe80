package window

import (
	"math"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// lossyEntry is one tracked key's approximate frequency, per the
// Manku-Motwani lossy counting algorithm: count is the observed frequency
// since the key first appeared, delta bounds the undercount (the current
// bucket id when the entry was created).
type lossyEntry struct {
	se    *event.StreamEvent // most recent representative event for this key
	count int64
	delta int64
}

// LossyCountingWindow approximates frequent items over an unbounded stream
// within error bound epsilon, periodically pruning entries that can no
// longer be frequent (spec §4.2.1: "counter table with epsilon-decay;
// periodic prune").
type LossyCountingWindow struct {
	base
	epsilon   float64
	attrIndex int
	bucket    int64 // width = ceil(1/epsilon)
	n         int64 // total events observed
	curBucket int64
	entries   map[string]*lossyEntry
	sched     *scheduler.Scheduler
}

// NewLossyCountingWindow builds a window with error bound epsilon, pruning
// on every pruneEvery tick via sched.
func NewLossyCountingWindow(epsilon float64, attrIndex int, pruneEvery time.Duration, sched *scheduler.Scheduler) *LossyCountingWindow {
	w := &LossyCountingWindow{
		epsilon:   epsilon,
		attrIndex: attrIndex,
		bucket:    int64(math.Ceil(1 / epsilon)),
		entries:   make(map[string]*lossyEntry),
		sched:     sched,
	}
	if sched != nil && pruneEvery > 0 {
		w.armPrune(pruneEvery)
	}
	return w
}

func (w *LossyCountingWindow) armPrune(every time.Duration) {
	w.sched.AfterFunc(every, func() {
		w.prune()
		w.armPrune(every)
	})
}

func (w *LossyCountingWindow) keyOf(se *event.StreamEvent) string {
	if w.attrIndex < 0 || w.attrIndex >= len(se.BeforeWindowData) {
		return ""
	}
	return se.BeforeWindowData[w.attrIndex].String()
}

func (w *LossyCountingWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		w.n++
		w.curBucket = (w.n-1)/w.bucket + 1
		key := w.keyOf(cur)
		e, ok := w.entries[key]
		if !ok {
			e = &lossyEntry{delta: w.curBucket - 1}
			w.entries[key] = e
		}
		e.count++
		e.se = cur
		out = appendChunk(out, cur)
		cur = next
	}
	w.mu.Unlock()
	w.emit("lossycounting", out)
}

// prune drops every entry whose count + delta <= current bucket id, emitting
// a synthesized EXPIRED copy of its last representative event so downstream
// frequency aggregations can retract it.
func (w *LossyCountingWindow) prune() {
	w.mu.Lock()
	var out *event.StreamEvent
	for key, e := range w.entries {
		if e.count+e.delta <= w.curBucket {
			delete(w.entries, key)
			out = appendChunk(out, expiredCopyOf(e.se))
		}
	}
	w.mu.Unlock()
	w.emit("lossycounting", out)
}

func (w *LossyCountingWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeDefault }
func (w *LossyCountingWindow) Clone() processor.Processor {
	nw := NewLossyCountingWindow(w.epsilon, w.attrIndex, 0, w.sched)
	nw.SetQueryID(w.queryID)
	return nw
}
