// Package pattern implements the pattern/sequence state machine (spec §4.3,
// C4): a chain of PreStateProcessor/PostStateProcessor pairs, one per
// pattern step (e1, e2, ...), each driving the three-list discipline
// (pending/new/expired) that keeps within-tick matching deterministic.
//
// Grounded on original_source/src/core/query/processor/stream/state/*.rs for
// the Pre/Post split and the three-list discipline, and on the teacher's
// atomic-flag coordination idiom (infrastructure/errors' lock-free counters,
// services/automation/marble/concurrency.go) for ProcessorSharedState.
package pattern

import "github.com/eventflux-io/engine/internal/core/event"

// Quantifier is a step's count bound, e1{m,n} (spec §4.3: "m can be 1
// (required) but not 0 for the first or last step ... the last step must be
// min == max (exact)").
type Quantifier struct {
	Min int
	Max int
}

// ExactlyOne is the default quantifier for a step with no {m,n} suffix.
var ExactlyOne = Quantifier{Min: 1, Max: 1}

// Unbounded returns true if this quantifier allows an indefinite run (Max <=
// 0; the PATTERN parser sets Max to 0 for "{m,}").
func (q Quantifier) Unbounded() bool { return q.Max <= 0 }

// candidate is one partial match in flight: a StateEvent being built up
// across pattern positions, with metadata the post-processor needs to decide
// completion and the WITHIN deadline.
type candidate struct {
	state       *event.StateEvent
	deadlineSet bool
	deadlineMs  int64 // now + WITHIN duration, stamped at position 0
}

// stateHolder implements the three-list discipline for one pattern step
// (spec §4.3): pending_list (waiting for a new event here), new_list
// (produced this tick, folded into pending_list at end-of-tick so
// within-tick events don't double-match), expired_list (WITHIN timer
// fired).
type stateHolder struct {
	pending []*candidate
	fresh   []*candidate // this tick's new_list, folded in by EndTick
	expired []*candidate
}

func newStateHolder() *stateHolder { return &stateHolder{} }

// AddPending puts a candidate directly into pending_list — used by Seed when
// the previous step hands a candidate on to this one.
func (h *stateHolder) AddPending(c *candidate) { h.pending = append(h.pending, c) }

// AddFresh records a candidate produced during the current tick; it is not
// visible to further matching until EndTick folds it into pending_list, so
// an event arriving mid-tick cannot match a state that same event just
// created (spec §5: "new_list is not considered until end-of-tick").
func (h *stateHolder) AddFresh(c *candidate) { h.fresh = append(h.fresh, c) }

// EndTick folds new_list into pending_list, per spec §4.3.
func (h *stateHolder) EndTick() {
	h.pending = append(h.pending, h.fresh...)
	h.fresh = nil
}

// ExpireDue moves every pending candidate whose WITHIN deadline has passed
// (given the current time nowMs) into expired_list, and drops it from
// pending_list.
func (h *stateHolder) ExpireDue(nowMs int64) {
	var remaining []*candidate
	for _, c := range h.pending {
		if c.deadlineSet && nowMs > c.deadlineMs {
			h.expired = append(h.expired, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	h.pending = remaining
}
