package executor

import (
	"testing"

	"github.com/eventflux-io/engine/internal/core/event"
)

func TestArithmeticWideningAndDivByZero(t *testing.T) {
	a, err := NewArithmetic(Add, NewConst(event.Int(1)), NewConst(event.Long(2)))
	if err != nil {
		t.Fatal(err)
	}
	if a.ReturnType() != event.TypeLong {
		t.Fatalf("expected widened type LONG, got %v", a.ReturnType())
	}
	v, ok := a.Execute(StreamContext{})
	if !ok || v.AsLong() != 3 {
		t.Fatalf("expected 3, got %v ok=%v", v, ok)
	}

	div, _ := NewArithmetic(Div, NewConst(event.Int(1)), NewConst(event.Int(0)))
	v, ok = div.Execute(StreamContext{})
	if !ok || !v.IsNull() {
		t.Fatal("division by zero must yield SQL-null, not a hard error")
	}
}

func TestArithmeticNullShortCircuits(t *testing.T) {
	a, _ := NewArithmetic(Add, NewConst(event.Null), NewConst(event.Int(1)))
	v, ok := a.Execute(StreamContext{})
	if !ok || !v.IsNull() {
		t.Fatal("arithmetic with a null operand must propagate null, not error")
	}
}

func TestCompareEqualityToNullIsFalse(t *testing.T) {
	c := NewCompare(Eq, NewConst(event.Null), NewConst(event.Null))
	v, ok := c.Execute(StreamContext{})
	if !ok || v.AsBool() {
		t.Fatal("NULL = NULL must be false per spec §3")
	}
}

func TestLogicalThreeValued(t *testing.T) {
	falseAndNull := NewAnd(NewConst(event.Bool(false)), NewConst(event.Null))
	v, ok := falseAndNull.Execute(StreamContext{})
	if !ok || v.AsBool() {
		t.Fatal("false AND null must be false (false dominates)")
	}

	trueOrNull := NewOr(NewConst(event.Bool(true)), NewConst(event.Null))
	v, ok = trueOrNull.Execute(StreamContext{})
	if !ok || !v.AsBool() {
		t.Fatal("true OR null must be true (true dominates)")
	}

	nullAndTrue := NewAnd(NewConst(event.Null), NewConst(event.Bool(true)))
	v, ok = nullAndTrue.Execute(StreamContext{})
	if !ok || !v.IsNull() {
		t.Fatal("null AND true must be null")
	}
}

func TestCaseSearchedWithElse(t *testing.T) {
	branches := []CaseBranch{
		{Cond: NewConst(event.Bool(false)), Result: NewConst(event.Str("a"))},
		{Cond: NewConst(event.Bool(true)), Result: NewConst(event.Str("b"))},
	}
	c, err := NewCase(branches, NewConst(event.Null))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := c.Execute(StreamContext{})
	if !ok || v.AsString() != "b" {
		t.Fatalf("expected branch 'b', got %v", v)
	}
}

func TestCastIdempotenceAndOverflow(t *testing.T) {
	v1, ok := castValue(event.Double(3.7), event.TypeInt)
	if !ok {
		t.Fatal("cast should succeed")
	}
	v2, ok := castValue(v1, event.TypeInt)
	if !ok || !v1.Equal(v2) {
		t.Fatal("cast(cast(x,T),T) must equal cast(x,T) (property P8)")
	}

	_, ok = castValue(event.Double(1e300), event.TypeInt)
	if ok {
		t.Fatal("overflowing numeric cast must be a hard error")
	}
}

func TestIndexedVariableOutOfBoundsReturnsNilNotError(t *testing.T) {
	state := event.NewStateEvent(1, 0)
	iv := NewIndexedVariable(0, 5, 0, event.TypeInt)
	_, ok := iv.Execute(StateContext{State: state})
	if ok {
		t.Fatal("out-of-bounds IndexedVariable must return ok=false, degrading gracefully")
	}
}

func TestFunctionRegistryBuiltins(t *testing.T) {
	r := NewFunctionRegistry()
	call, err := NewFunctionCall(r, "upper", []Executor{NewConst(event.Str("hi"))})
	if err != nil {
		t.Fatal(err)
	}
	v, ok := call.Execute(StreamContext{})
	if !ok || v.AsString() != "HI" {
		t.Fatalf("expected HI, got %v", v)
	}

	_, err = NewFunctionCall(r, "nope", nil)
	if err == nil {
		t.Fatal("unknown function must fail at build time")
	}
}
