package processor

import (
	"strings"
	"sync"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
)

// AggregateFunc is one GROUP BY aggregate (SUM, COUNT, AVG, MIN, MAX, ...):
// Add folds a CURRENT event's value in, Remove folds an EXPIRED event's
// value back out (window contract, spec §4.2.1: "add-on-CURRENT,
// remove-on-EXPIRED"), and Value reads the accumulator's current result.
type AggregateFunc interface {
	Add(v event.AttributeValue)
	Remove(v event.AttributeValue)
	Value() event.AttributeValue
	ReturnType() event.AttributeType
	New() AggregateFunc
}

// AggregateSpec pairs the input expression with the aggregate accumulator
// that consumes its evaluated value.
type AggregateSpec struct {
	Name string
	Expr executor.Executor
	Acc  AggregateFunc
}

// groupAccumulators holds one accumulator instance per aggregate, for one
// GROUP BY key.
type groupAccumulators struct {
	key   []event.AttributeValue
	accs  []AggregateFunc
	first *event.StreamEvent // a representative event, for non-aggregate SELECT columns
}

// GroupByAggregator implements GROUP BY + aggregation (spec §4.2: "GROUP BY
// carries a mapping from group key ... to accumulator state; aggregations
// emit either on every input (streaming mode) or on window emission (batch
// mode)"). With no GroupKeys it behaves as a single implicit group (a plain
// `SELECT SUM(x) FROM ...` with no GROUP BY clause).
type GroupByAggregator struct {
	BaseProcessor
	mu        sync.Mutex
	GroupKeys []executor.Executor
	Specs     []AggregateSpec
	Mode      ProcessingMode // ModeDefault = streaming (emit per input), ModeBatch = emit once per Process call
	groups    map[string]*groupAccumulators
}

func NewGroupByAggregator(groupKeys []executor.Executor, specs []AggregateSpec, mode ProcessingMode) *GroupByAggregator {
	return &GroupByAggregator{
		GroupKeys: groupKeys,
		Specs:     specs,
		Mode:      mode,
		groups:    make(map[string]*groupAccumulators),
	}
}

func (g *GroupByAggregator) groupKeyOf(se *event.StreamEvent) ([]event.AttributeValue, string, bool) {
	if len(g.GroupKeys) == 0 {
		return nil, "", true
	}
	key := make([]event.AttributeValue, len(g.GroupKeys))
	var sb strings.Builder
	for i, k := range g.GroupKeys {
		v, ok := k.Execute(executor.StreamContext{Event: se})
		if !ok {
			return nil, "", false
		}
		key[i] = v
		sb.WriteString(v.String())
		sb.WriteByte('\x1f')
	}
	return key, sb.String(), true
}

func (g *GroupByAggregator) groupFor(key []event.AttributeValue, keyStr string) *groupAccumulators {
	ga, ok := g.groups[keyStr]
	if ok {
		return ga
	}
	accs := make([]AggregateFunc, len(g.Specs))
	for i, s := range g.Specs {
		accs[i] = s.Acc.New()
	}
	ga = &groupAccumulators{key: key, accs: accs}
	g.groups[keyStr] = ga
	return ga
}

func (g *GroupByAggregator) Process(chunk *event.StreamEvent) {
	g.mu.Lock()
	var touched []*groupAccumulators
	for cur := chunk; cur != nil; cur = cur.Next {
		key, keyStr, ok := g.groupKeyOf(cur)
		if !ok {
			continue
		}
		ga := g.groupFor(key, keyStr)
		ga.first = cur
		for i, s := range g.Specs {
			v, ok := s.Expr.Execute(executor.StreamContext{Event: cur})
			if !ok {
				continue
			}
			if cur.Type == event.Expired {
				ga.accs[i].Remove(v)
			} else {
				ga.accs[i].Add(v)
			}
		}
		if g.Mode != ModeBatch {
			touched = append(touched, ga)
		}
	}

	var out *event.StreamEvent
	if g.Mode == ModeBatch {
		for _, ga := range g.groups {
			out = appendChunk(out, g.emit(ga))
		}
	} else {
		for _, ga := range touched {
			out = appendChunk(out, g.emit(ga))
		}
	}
	g.mu.Unlock()
	g.Forward(out)
}

func appendChunk(a, b *event.StreamEvent) *event.StreamEvent { return event.Append(a, b) }

func (g *GroupByAggregator) emit(ga *groupAccumulators) *event.StreamEvent {
	out := ga.first.Clone()
	out.Next = nil
	out.Type = event.Current
	vals := make([]event.AttributeValue, len(g.Specs))
	for i, acc := range ga.accs {
		vals[i] = acc.Value()
	}
	out.OutputData = vals
	return out
}

func (g *GroupByAggregator) IsStateful() bool               { return true }
func (g *GroupByAggregator) ProcessingMode() ProcessingMode { return g.Mode }
func (g *GroupByAggregator) Clone() Processor {
	specs := make([]AggregateSpec, len(g.Specs))
	for i, s := range g.Specs {
		specs[i] = AggregateSpec{Name: s.Name, Expr: s.Expr.Clone(), Acc: s.Acc.New()}
	}
	keys := make([]executor.Executor, len(g.GroupKeys))
	for i, k := range g.GroupKeys {
		keys[i] = k.Clone()
	}
	return NewGroupByAggregator(keys, specs, g.Mode)
}
