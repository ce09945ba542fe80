package executor

import "github.com/eventflux-io/engine/internal/core/event"

// Executor is a pure-function node over an event context, with a typed
// return and the ability to instantiate an independent copy per query
// instance (spec §4.1: "clone_executor(app_ctx) -> Box<Executor>").
//
// Execute returns (value, ok). ok=false is the "hard type error" case (spec
// calls this `None`) and the caller must treat it as an error, not as SQL
// null. ok=true with value.IsNull() is SQL-null propagation and downstream
// operators (notably Filter) must treat that as "reject", not as an error —
// this distinction is load-bearing and must never be collapsed into a single
// bool.
type Executor interface {
	Execute(ctx Context) (event.AttributeValue, bool)
	ReturnType() event.AttributeType
	Clone() Executor
}

// Const wraps a fixed value.
type Const struct {
	Value event.AttributeValue
}

func NewConst(v event.AttributeValue) *Const { return &Const{Value: v} }

func (c *Const) Execute(ctx Context) (event.AttributeValue, bool) { return c.Value, true }
func (c *Const) ReturnType() event.AttributeType                  { return c.Value.Type() }
func (c *Const) Clone() Executor                                  { return &Const{Value: c.Value} }

// Variable reads an attribute identified by [section, attributeIndex] from
// the current Context (spec §4.1).
type Variable struct {
	Section   Section
	Index     int
	ValueType event.AttributeType
}

func NewVariable(section Section, index int, t event.AttributeType) *Variable {
	return &Variable{Section: section, Index: index, ValueType: t}
}

func (v *Variable) Execute(ctx Context) (event.AttributeValue, bool) {
	return ctx.Attribute(v.Section, v.Index)
}
func (v *Variable) ReturnType() event.AttributeType { return v.ValueType }
func (v *Variable) Clone() Executor                 { nv := *v; return &nv }

// LastIndex is the sentinel IndexedVariable.Index uses for the `last`
// keyword (spec §4.1: "i is either numeric or the keyword last").
const LastIndex = -1

// IndexedVariable reads event #i from a pattern position's chain. Only valid
// inside pattern queries; out-of-bounds (or a non-pattern Context) returns
// (Null, false) rather than an error so optional patterns degrade
// gracefully, per spec.
type IndexedVariable struct {
	Position  int
	Index     int // LastIndex for `last`
	AttrIndex int
	ValueType event.AttributeType
}

func NewIndexedVariable(position, index, attrIndex int, t event.AttributeType) *IndexedVariable {
	return &IndexedVariable{Position: position, Index: index, AttrIndex: attrIndex, ValueType: t}
}

func (iv *IndexedVariable) Execute(ctx Context) (event.AttributeValue, bool) {
	var se *event.StreamEvent
	if iv.Index == LastIndex {
		sc, ok := ctx.(StateContext)
		if !ok || sc.State == nil {
			return event.Null, false
		}
		se = sc.State.LastEventAt(iv.Position)
	} else {
		chain := ctx.Chain(iv.Position)
		n := 0
		for cur := chain; cur != nil; cur = cur.Next {
			if n == iv.Index {
				se = cur
				break
			}
			n++
		}
	}
	if se == nil {
		return event.Null, false
	}
	if iv.AttrIndex < 0 || iv.AttrIndex >= len(se.BeforeWindowData) {
		return event.Null, false
	}
	return se.BeforeWindowData[iv.AttrIndex], true
}
func (iv *IndexedVariable) ReturnType() event.AttributeType { return iv.ValueType }
func (iv *IndexedVariable) Clone() Executor                 { niv := *iv; return &niv }

// CollectionAggregationExecutor reduces over an entire pattern position's
// chain (e.g. sum(e1[0:].amount)), supplementing the distilled spec per
// original_source/src/core/executor/collection_aggregation_executor.rs
// (see SPEC_FULL.md §C.7).
type CollectionAggregationExecutor struct {
	Position  int
	AttrIndex int
	Reduce    func(values []event.AttributeValue) (event.AttributeValue, bool)
	ValueType event.AttributeType
}

func (c *CollectionAggregationExecutor) Execute(ctx Context) (event.AttributeValue, bool) {
	chain := ctx.Chain(c.Position)
	var values []event.AttributeValue
	for cur := chain; cur != nil; cur = cur.Next {
		if c.AttrIndex < 0 || c.AttrIndex >= len(cur.BeforeWindowData) {
			return event.Null, false
		}
		values = append(values, cur.BeforeWindowData[c.AttrIndex])
	}
	return c.Reduce(values)
}
func (c *CollectionAggregationExecutor) ReturnType() event.AttributeType { return c.ValueType }
func (c *CollectionAggregationExecutor) Clone() Executor {
	nc := *c
	return &nc
}
