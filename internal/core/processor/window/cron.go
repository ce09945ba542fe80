package window

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
	"github.com/robfig/cron/v3"
)

// CronWindow buffers events between cron firings and, on each firing, emits
// the buffer as CURRENT plus an EXPIRED copy of the previous firing's batch
// (spec §4.2.1: "buffer + next-fire time; scheduler fires per cron") —
// structurally identical to TimeBatchWindow but driven by a cron expression
// instead of a fixed period, grounded directly on the teacher's
// domain/automation cron job scheduling via github.com/robfig/cron/v3.
type CronWindow struct {
	base
	expr      string
	sched     *scheduler.Scheduler
	entryID   cron.EntryID
	buf       []*event.StreamEvent
	prevBatch []*event.StreamEvent
}

// NewCronWindow registers expr with sched immediately; callers must call
// sched.Start() once the graph is fully wired.
func NewCronWindow(expr string, sched *scheduler.Scheduler) (*CronWindow, error) {
	w := &CronWindow{expr: expr, sched: sched}
	id, err := sched.CronFunc(expr, w.fire)
	if err != nil {
		return nil, err
	}
	w.entryID = id
	return w, nil
}

func (w *CronWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil
		w.buf = append(w.buf, cur)
		cur = next
	}
	w.mu.Unlock()
}

func (w *CronWindow) fire() {
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
	w.mu.Unlock()

	w.emit("cron", out)
}

// Close deregisters this window's cron entry, e.g. on query teardown.
func (w *CronWindow) Close() { w.sched.RemoveCron(w.entryID) }

func (w *CronWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeBatch }
func (w *CronWindow) Clone() processor.Processor {
	nw, err := NewCronWindow(w.expr, w.sched)
	if err != nil {
		// expr already validated once at construction time; a second
		// registration failing would mean the scheduler itself is broken.
		panic(err)
	}
	nw.SetQueryID(w.queryID)
	return nw
}
