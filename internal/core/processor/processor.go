// Package processor implements the query-side processing chain (spec §4.2,
// C3): selector/projection, filter, the nine window operators, stream-stream
// and stream-table joins, group-by/aggregation and the output-rate limiter,
// terminating in a user callback.
//
// Grounded on the teacher's RequestRouter worker/dispatch shape
// (system/events/router.go) generalized from "route a Request to a
// ServiceHandler" to "push a StreamEvent chunk to the next Processor in a
// singly-linked chain" — both are fan-out-free, one-next-hop pipelines.
package processor

import "github.com/eventflux-io/engine/internal/core/event"

// ProcessingMode tells the runtime whether a processor may reorder or must
// preserve wall-clock arrival order — batch windows and group-by emit out of
// order relative to arrival, everything else is a straight pass-through.
type ProcessingMode int

const (
	ModeDefault ProcessingMode = iota
	ModeBatch
)

// Processor is one stage of a query's processing chain (spec §4.2:
// "process(chunk) consumes an event chunk and may emit a different chunk to
// the next processor"). A nil chunk passed to Process means "no output for
// this call" and must not be forwarded.
type Processor interface {
	// Process consumes chunk (the head of a StreamEvent linked list) and
	// pushes whatever it produces to the next processor in the chain, if
	// any.
	Process(chunk *event.StreamEvent)

	// SetNext wires the next processor in the chain.
	SetNext(next Processor)
	Next() Processor

	// IsStateful reports whether this processor holds state that must
	// participate in checkpoint/restore (spec §4.6, C8).
	IsStateful() bool

	// ProcessingMode reports whether this stage may reorder events.
	ProcessingMode() ProcessingMode

	// Clone returns an independent copy of this one processor stage, not
	// its downstream chain (CloneChain copies a whole chain), for a new
	// query instance — partitioned queries instantiate one processor chain
	// per partition key.
	Clone() Processor
}

// BaseProcessor supplies the SetNext/Next bookkeeping every concrete
// processor embeds, mirroring the teacher's preference for small composable
// structs over deep inheritance-style hierarchies.
type BaseProcessor struct {
	next Processor
}

func (b *BaseProcessor) SetNext(p Processor) { b.next = p }
func (b *BaseProcessor) Next() Processor     { return b.next }

// Forward pushes chunk to the next processor, if wired. Concrete processors
// call this instead of touching b.next directly so a nil next is a silent
// no-op (the last stage in a chain, typically a CallbackProcessor).
func (b *BaseProcessor) Forward(chunk *event.StreamEvent) {
	if b.next != nil && chunk != nil {
		b.next.Process(chunk)
	}
}

// Chain wires processors in order, returning the head. Each processor's
// Next() becomes the following one; the caller is responsible for calling
// Process on the head.
func Chain(procs ...Processor) Processor {
	if len(procs) == 0 {
		return nil
	}
	for i := 0; i < len(procs)-1; i++ {
		procs[i].SetNext(procs[i+1])
	}
	return procs[0]
}

// CloneChain deep-clones an entire chain starting at head. Each stage's own
// Clone() only copies that stage (see e.g. Filter.Clone), so the chain's
// Next() links have to be rebuilt one hop at a time here rather than
// falling out of a single Clone() call — this is what lets a partitioned
// query (PartitionRouter) hand out an independent chain per key without
// every stage's Clone() needing chain-walking logic of its own.
func CloneChain(head Processor) Processor {
	if head == nil {
		return nil
	}
	clone := head.Clone()
	if next := head.Next(); next != nil {
		clone.SetNext(CloneChain(next))
	}
	return clone
}
