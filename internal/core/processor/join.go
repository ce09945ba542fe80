package processor

import (
	"sync"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/pkg/metrics"
)

// JoinType is the closed set of join flavors (spec §4.2.2).
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
)

func (t JoinType) String() string {
	switch t {
	case LeftOuterJoin:
		return "left_outer"
	case RightOuterJoin:
		return "right_outer"
	case FullOuterJoin:
		return "full_outer"
	default:
		return "inner"
	}
}

// StreamJoinProcessor implements stream-stream join: both sides are
// windowed, and on each arriving event from one side the Cartesian product
// against the other side's current window content is emitted, filtered by
// the ON-clause executor (spec §4.2.2). Outer joins pad the absent side
// with Null; tie-breaking follows the opposite side's window insertion
// order.
//
// The two sides are fed by calling ProcessLeft/ProcessRight directly (the
// query builder wires each side's window output here instead of through a
// single Process(chunk) entry point, since a join has two distinct inputs
// rather than one).
type StreamJoinProcessor struct {
	BaseProcessor
	mu          sync.Mutex
	Type        JoinType
	On          executor.Executor // built over a StateEvent with position 0 = left, 1 = right
	leftWindow  []*event.StreamEvent
	rightWindow []*event.StreamEvent
	leftArity   int
	rightArity  int
	queryID     string
}

func NewStreamJoinProcessor(joinType JoinType, on executor.Executor, leftArity, rightArity int) *StreamJoinProcessor {
	return &StreamJoinProcessor{Type: joinType, On: on, leftArity: leftArity, rightArity: rightArity}
}

// SetQueryID tags this join with the "query" label its
// eventflux_join_emissions_total metric reports under (spec §B domain
// stack), typically the statement's INSERT INTO target name.
func (j *StreamJoinProcessor) SetQueryID(id string) { j.queryID = id }

// ProcessLeft handles a chunk of new (already windowed) left-side events.
func (j *StreamJoinProcessor) ProcessLeft(chunk *event.StreamEvent) {
	j.mu.Lock()
	var out *event.StreamEvent
	emitted := 0
	for cur := chunk; cur != nil; cur = cur.Next {
		if cur.Type == event.Expired {
			j.leftWindow = removeEvent(j.leftWindow, cur)
			continue
		}
		j.leftWindow = append(j.leftWindow, cur)
		matched := false
		for _, r := range j.rightWindow {
			if combined, ok := j.combine(cur, r); ok {
				out = appendChunk(out, combined)
				matched = true
				emitted++
			}
		}
		if !matched && (j.Type == LeftOuterJoin || j.Type == FullOuterJoin) {
			out = appendChunk(out, j.pad(cur, nil))
			emitted++
		}
	}
	j.mu.Unlock()
	j.recordEmissions(emitted)
	j.Forward(out)
}

// ProcessRight handles a chunk of new (already windowed) right-side events.
func (j *StreamJoinProcessor) ProcessRight(chunk *event.StreamEvent) {
	j.mu.Lock()
	var out *event.StreamEvent
	emitted := 0
	for cur := chunk; cur != nil; cur = cur.Next {
		if cur.Type == event.Expired {
			j.rightWindow = removeEvent(j.rightWindow, cur)
			continue
		}
		j.rightWindow = append(j.rightWindow, cur)
		matched := false
		for _, l := range j.leftWindow {
			if combined, ok := j.combine(l, cur); ok {
				out = appendChunk(out, combined)
				matched = true
				emitted++
			}
		}
		if !matched && (j.Type == RightOuterJoin || j.Type == FullOuterJoin) {
			out = appendChunk(out, j.pad(nil, cur))
			emitted++
		}
	}
	j.mu.Unlock()
	j.recordEmissions(emitted)
	j.Forward(out)
}

// recordEmissions adds count combined events to the join_emissions_total
// counter (spec §B: "join emissions").
func (j *StreamJoinProcessor) recordEmissions(count int) {
	if count == 0 {
		return
	}
	metrics.JoinEmissions.WithLabelValues(j.queryID, j.Type.String()).Add(float64(count))
}

func (j *StreamJoinProcessor) combine(l, r *event.StreamEvent) (*event.StreamEvent, bool) {
	state := event.NewStateEvent(2, 0)
	state.SetEventChain(0, l)
	state.SetEventChain(1, r)
	v, ok := j.On.Execute(executor.StateContext{State: state})
	if !ok || v.IsNull() || !v.AsBool() {
		return nil, false
	}
	return j.pad(l, r), true
}

// pad builds the combined output row, substituting Null for a missing side
// (outer join padding, spec §4.2.2).
func (j *StreamJoinProcessor) pad(l, r *event.StreamEvent) *event.StreamEvent {
	out := &event.StreamEvent{Type: event.Current}
	out.BeforeWindowData = make([]event.AttributeValue, j.leftArity+j.rightArity)
	for i := 0; i < j.leftArity; i++ {
		if l != nil && i < len(l.BeforeWindowData) {
			out.BeforeWindowData[i] = l.BeforeWindowData[i]
		} else {
			out.BeforeWindowData[i] = event.Null
		}
	}
	for i := 0; i < j.rightArity; i++ {
		if r != nil && i < len(r.BeforeWindowData) {
			out.BeforeWindowData[j.leftArity+i] = r.BeforeWindowData[i]
		} else {
			out.BeforeWindowData[j.leftArity+i] = event.Null
		}
	}
	return out
}

func removeEvent(list []*event.StreamEvent, target *event.StreamEvent) []*event.StreamEvent {
	for i, e := range list {
		if e == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Process satisfies the Processor interface for wiring purposes, but a
// stream-stream join has two inputs; callers should use ProcessLeft /
// ProcessRight directly. Process treats its argument as a left-side chunk.
func (j *StreamJoinProcessor) Process(chunk *event.StreamEvent) { j.ProcessLeft(chunk) }

func (j *StreamJoinProcessor) IsStateful() bool               { return true }
func (j *StreamJoinProcessor) ProcessingMode() ProcessingMode { return ModeDefault }
func (j *StreamJoinProcessor) Clone() Processor {
	nj := NewStreamJoinProcessor(j.Type, j.On.Clone(), j.leftArity, j.rightArity)
	nj.SetQueryID(j.queryID)
	return nj
}
