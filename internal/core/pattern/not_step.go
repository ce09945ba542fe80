package pattern

import (
	"sync"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// notStep implements the NOT operator (spec §4.3: "not e2 for 5 sec" — the
// chain only advances once the duration elapses without a matching event).
// It occupies no pattern position of its own; instead it arms a timer per
// in-flight candidate when handed one, and cancels (drops) that candidate if
// a prohibited event arrives before the timer fires.
//
// Grounded on the scheduler.Scheduler.AfterFunc deadline idiom already used
// by the time/timeBatch/session windows, applied here to "absence of an
// event" instead of "presence past a window boundary".
type notStep struct {
	stream string
	cond   executor.Executor
	dur    time.Duration
	sched  *scheduler.Scheduler

	mu      sync.Mutex
	pending map[*candidate]bool

	// forward is called with a candidate once its timer elapses without
	// being cancelled: either the next step's seedCandidate, or a closure
	// that emits the final match if NOT is the terminal step.
	forward func(*candidate)
}

func newNotStep(stream string, cond executor.Executor, dur time.Duration, sched *scheduler.Scheduler) *notStep {
	return &notStep{stream: stream, cond: cond, dur: dur, sched: sched, pending: make(map[*candidate]bool)}
}

func (n *notStep) streamName() string { return n.stream }

// seedCandidate arms the absence timer for a newly arrived candidate.
func (n *notStep) seedCandidate(c *candidate) {
	n.mu.Lock()
	n.pending[c] = true
	n.mu.Unlock()

	n.sched.AfterFunc(n.dur, func() {
		n.mu.Lock()
		ok := n.pending[c]
		if ok {
			delete(n.pending, c)
		}
		n.mu.Unlock()
		if ok && n.forward != nil {
			n.forward(c)
		}
	})
}

// Consume checks every armed candidate against an arriving prohibited event;
// a match drops that candidate outright (the NOT condition was violated).
func (n *notStep) Consume(se *event.StreamEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.pending {
		if n.matches(se, c) {
			delete(n.pending, c)
		}
	}
}

func (n *notStep) matches(se *event.StreamEvent, c *candidate) bool {
	if n.cond == nil {
		return true
	}
	v, ok := n.cond.Execute(executor.StreamContext{Event: se})
	return ok && !v.IsNull() && v.AsBool()
}
