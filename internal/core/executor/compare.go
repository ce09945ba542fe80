package executor

import "github.com/eventflux-io/engine/internal/core/event"

// CompareOp is the closed set of comparison operators.
type CompareOp int

const (
	Eq CompareOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

// Compare evaluates left OP right. Numeric comparisons are cross-type per
// the widening lattice; non-numeric comparisons require the same tag or
// return a hard error (spec §4.1).
type Compare struct {
	Op          CompareOp
	Left, Right Executor
}

func NewCompare(op CompareOp, left, right Executor) *Compare {
	return &Compare{Op: op, Left: left, Right: right}
}

func (c *Compare) Execute(ctx Context) (event.AttributeValue, bool) {
	lv, ok := c.Left.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	rv, ok := c.Right.Execute(ctx)
	if !ok {
		return event.Null, false
	}

	if c.Op == Eq {
		if lv.IsNull() || rv.IsNull() {
			return event.Bool(false), true
		}
		return event.Bool(lv.Equal(rv)), true
	}
	if c.Op == Neq {
		if lv.IsNull() || rv.IsNull() {
			return event.Bool(false), true
		}
		return event.Bool(!lv.Equal(rv)), true
	}

	if lv.IsNull() || rv.IsNull() {
		return event.Null, true
	}
	cmp, ok := lv.Compare(rv)
	if !ok {
		return event.Null, false
	}
	var res bool
	switch c.Op {
	case Lt:
		res = cmp < 0
	case Lte:
		res = cmp <= 0
	case Gt:
		res = cmp > 0
	case Gte:
		res = cmp >= 0
	}
	return event.Bool(res), true
}

func (c *Compare) ReturnType() event.AttributeType { return event.TypeBool }
func (c *Compare) Clone() Executor {
	return &Compare{Op: c.Op, Left: c.Left.Clone(), Right: c.Right.Clone()}
}
