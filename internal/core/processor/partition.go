package processor

import (
	"sync"

	"github.com/eventflux-io/engine/internal/core/event"
)

// PartitionRouter implements `CREATE PARTITION BY key { query; ... }`
// (spec §6): every distinct value observed in keyIndex's column gets its
// own independent clone of the template chain, created lazily on first
// sight, so that a stateful stage inside the chain (a window, a
// GroupByAggregator) accumulates separately per key instead of mixing
// events from different partitions.
//
// Grounded on original_source/src/core/partition/parser.rs's per-key
// instance map, carried over to the engine's Processor/Clone contract
// (processor.go's doc comment on Clone names this exact use case).
type PartitionRouter struct {
	BaseProcessor
	keyIndex  int
	template  Processor
	mu        sync.Mutex
	instances map[string]Processor
}

// NewPartitionRouter builds a router keyed on keyIndex (an index into a
// StreamEvent's BeforeWindowData) that dispatches each event to its own
// clone of template, cloning template itself via CloneChain on first use
// of a given key.
func NewPartitionRouter(keyIndex int, template Processor) *PartitionRouter {
	return &PartitionRouter{
		keyIndex:  keyIndex,
		template:  template,
		instances: make(map[string]Processor),
	}
}

// Process splits chunk into single-event StreamEvents (a partition's key
// can differ event-to-event even within one chunk) and routes each to its
// partition's chain.
func (p *PartitionRouter) Process(chunk *event.StreamEvent) {
	for cur := chunk; cur != nil; {
		next := cur.Next
		single := cur.Clone()
		single.Next = nil

		key := ""
		if p.keyIndex >= 0 && p.keyIndex < len(single.BeforeWindowData) {
			key = single.BeforeWindowData[p.keyIndex].String()
		}
		p.instanceFor(key).Process(single)
		cur = next
	}
}

func (p *PartitionRouter) instanceFor(key string) Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.instances[key]
	if !ok {
		inst = CloneChain(p.template)
		p.instances[key] = inst
	}
	return inst
}

func (p *PartitionRouter) IsStateful() bool               { return true }
func (p *PartitionRouter) ProcessingMode() ProcessingMode { return p.template.ProcessingMode() }

// Clone returns a router over a fresh instance map but sharing the same
// template (itself immutable once built) — used when a partitioned query's
// own chain is nested inside another clone operation.
func (p *PartitionRouter) Clone() Processor {
	return NewPartitionRouter(p.keyIndex, p.template)
}
