package executor

import (
	"math"

	"github.com/eventflux-io/engine/internal/core/event"
)

// registerMathFunctions installs the math built-ins, grounded on
// original_source/src/core/executor/function/math_functions.rs.
func registerMathFunctions(r *FunctionRegistry) {
	unary := func(fn func(float64) float64) FunctionImpl {
		return func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 {
				return event.Null, false
			}
			if args[0].IsNull() {
				return event.Null, true
			}
			v, ok := args[0].AsFloat64()
			if !ok {
				return event.Null, false
			}
			return event.Double(fn(v)), true
		}
	}

	r.Register("abs", FunctionSpec{ReturnType: event.TypeDouble, Impl: unary(math.Abs)})
	r.Register("sqrt", FunctionSpec{ReturnType: event.TypeDouble, Impl: unary(math.Sqrt)})
	r.Register("ceil", FunctionSpec{ReturnType: event.TypeDouble, Impl: unary(math.Ceil)})
	r.Register("floor", FunctionSpec{ReturnType: event.TypeDouble, Impl: unary(math.Floor)})
	r.Register("ln", FunctionSpec{ReturnType: event.TypeDouble, Impl: unary(math.Log)})
	r.Register("log10", FunctionSpec{ReturnType: event.TypeDouble, Impl: unary(math.Log10)})

	r.Register("power", FunctionSpec{
		ReturnType: event.TypeDouble,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 2 {
				return event.Null, false
			}
			if args[0].IsNull() || args[1].IsNull() {
				return event.Null, true
			}
			base, ok1 := args[0].AsFloat64()
			exp, ok2 := args[1].AsFloat64()
			if !ok1 || !ok2 {
				return event.Null, false
			}
			return event.Double(math.Pow(base, exp)), true
		},
	})

	r.Register("round", FunctionSpec{
		ReturnType: event.TypeLong,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 {
				return event.Null, false
			}
			if args[0].IsNull() {
				return event.Null, true
			}
			v, ok := args[0].AsFloat64()
			if !ok {
				return event.Null, false
			}
			return event.Long(int64(math.Round(v))), true
		},
	})
}
