package executor

import "github.com/eventflux-io/engine/internal/core/event"

// And implements SQL three-valued AND: false dominates, then null, then true
// (Kleene logic) — spec §4.1 "Logical AND/OR/NOT with SQL three-valued
// logic (true/false/null)".
type And struct{ Left, Right Executor }

func NewAnd(l, r Executor) *And { return &And{Left: l, Right: r} }

func (a *And) Execute(ctx Context) (event.AttributeValue, bool) {
	lv, ok := a.Left.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if !lv.IsNull() && !lv.AsBool() {
		return event.Bool(false), true
	}
	rv, ok := a.Right.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if !rv.IsNull() && !rv.AsBool() {
		return event.Bool(false), true
	}
	if lv.IsNull() || rv.IsNull() {
		return event.Null, true
	}
	return event.Bool(true), true
}
func (a *And) ReturnType() event.AttributeType { return event.TypeBool }
func (a *And) Clone() Executor                 { return &And{Left: a.Left.Clone(), Right: a.Right.Clone()} }

// Or implements SQL three-valued OR: true dominates, then null, then false.
type Or struct{ Left, Right Executor }

func NewOr(l, r Executor) *Or { return &Or{Left: l, Right: r} }

func (o *Or) Execute(ctx Context) (event.AttributeValue, bool) {
	lv, ok := o.Left.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if !lv.IsNull() && lv.AsBool() {
		return event.Bool(true), true
	}
	rv, ok := o.Right.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if !rv.IsNull() && rv.AsBool() {
		return event.Bool(true), true
	}
	if lv.IsNull() || rv.IsNull() {
		return event.Null, true
	}
	return event.Bool(false), true
}
func (o *Or) ReturnType() event.AttributeType { return event.TypeBool }
func (o *Or) Clone() Executor                 { return &Or{Left: o.Left.Clone(), Right: o.Right.Clone()} }

// Not implements SQL three-valued NOT: NOT NULL is NULL.
type Not struct{ Operand Executor }

func NewNot(e Executor) *Not { return &Not{Operand: e} }

func (n *Not) Execute(ctx Context) (event.AttributeValue, bool) {
	v, ok := n.Operand.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if v.IsNull() {
		return event.Null, true
	}
	return event.Bool(!v.AsBool()), true
}
func (n *Not) ReturnType() event.AttributeType { return event.TypeBool }
func (n *Not) Clone() Executor                 { return &Not{Operand: n.Operand.Clone()} }
