package executor

import "github.com/eventflux-io/engine/internal/core/event"

// ArithOp is the closed set of arithmetic operators.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

// Arithmetic evaluates left OP right with cross-type numeric widening (spec
// §4.1): return type follows the Int/Long/Float/Double lattice, Int/Long
// overflow wraps, and division (or modulo) by zero yields SQL-null rather
// than erroring.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Executor
	ValueType   event.AttributeType
}

// NewArithmetic builds an Arithmetic node, resolving its return type via the
// numeric widening lattice. Returns an error if either operand isn't numeric.
func NewArithmetic(op ArithOp, left, right Executor) (*Arithmetic, error) {
	t, ok := event.WidenedType(left.ReturnType(), right.ReturnType())
	if !ok {
		return nil, errNotNumeric(left.ReturnType(), right.ReturnType())
	}
	return &Arithmetic{Op: op, Left: left, Right: right, ValueType: t}, nil
}

func (a *Arithmetic) Execute(ctx Context) (event.AttributeValue, bool) {
	lv, ok := a.Left.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	rv, ok := a.Right.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if lv.IsNull() || rv.IsNull() {
		return event.Null, true
	}

	// Integer-only operators keep wrapping semantics when both sides are
	// exactly Int or Long; anything involving Float/Double falls through to
	// floating point arithmetic.
	if a.ValueType == event.TypeInt || a.ValueType == event.TypeLong {
		l, _ := lv.AsFloat64()
		r, _ := rv.AsFloat64()
		li, ri := int64(l), int64(r)
		var res int64
		switch a.Op {
		case Add:
			res = li + ri
		case Sub:
			res = li - ri
		case Mul:
			res = li * ri
		case Div:
			if ri == 0 {
				return event.Null, true
			}
			res = li / ri
		case Mod:
			if ri == 0 {
				return event.Null, true
			}
			res = li % ri
		}
		if a.ValueType == event.TypeInt {
			return event.Int(event.WrapInt32(res)), true
		}
		return event.Long(res), true
	}

	l, _ := lv.AsFloat64()
	r, _ := rv.AsFloat64()
	var res float64
	switch a.Op {
	case Add:
		res = l + r
	case Sub:
		res = l - r
	case Mul:
		res = l * r
	case Div:
		if r == 0 {
			return event.Null, true
		}
		res = l / r
	case Mod:
		if r == 0 {
			return event.Null, true
		}
		res = float64(int64(l) % int64(r))
	}
	if a.ValueType == event.TypeFloat {
		return event.Float(float32(res)), true
	}
	return event.Double(res), true
}

func (a *Arithmetic) ReturnType() event.AttributeType { return a.ValueType }
func (a *Arithmetic) Clone() Executor {
	return &Arithmetic{Op: a.Op, Left: a.Left.Clone(), Right: a.Right.Clone(), ValueType: a.ValueType}
}

type typeError struct{ msg string }

func (e *typeError) Error() string { return e.msg }

func errNotNumeric(a, b event.AttributeType) error {
	return &typeError{msg: "arithmetic requires numeric operands, got " + a.String() + " and " + b.String()}
}
