package executor

import (
	"strings"

	"github.com/eventflux-io/engine/internal/core/event"
)

// registerStringFunctions installs the string built-ins, grounded on
// original_source/src/core/executor/function/string_functions.rs.
func registerStringFunctions(r *FunctionRegistry) {
	r.Register("upper", FunctionSpec{
		ReturnType: event.TypeString,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 {
				return event.Null, false
			}
			if args[0].IsNull() {
				return event.Null, true
			}
			return event.Str(strings.ToUpper(args[0].AsString())), true
		},
	})

	r.Register("lower", FunctionSpec{
		ReturnType: event.TypeString,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 {
				return event.Null, false
			}
			if args[0].IsNull() {
				return event.Null, true
			}
			return event.Str(strings.ToLower(args[0].AsString())), true
		},
	})

	r.Register("concat", FunctionSpec{
		ReturnType: event.TypeString,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			var b strings.Builder
			for _, a := range args {
				if a.IsNull() {
					return event.Null, true
				}
				b.WriteString(a.AsString())
			}
			return event.Str(b.String()), true
		},
	})

	r.Register("length", FunctionSpec{
		ReturnType: event.TypeInt,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 {
				return event.Null, false
			}
			if args[0].IsNull() {
				return event.Null, true
			}
			return event.Int(int32(len(args[0].AsString()))), true
		},
	})

	r.Register("contains", FunctionSpec{
		ReturnType: event.TypeBool,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 2 {
				return event.Null, false
			}
			if args[0].IsNull() || args[1].IsNull() {
				return event.Null, true
			}
			return event.Bool(strings.Contains(args[0].AsString(), args[1].AsString())), true
		},
	})

	r.Register("trim", FunctionSpec{
		ReturnType: event.TypeString,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 {
				return event.Null, false
			}
			if args[0].IsNull() {
				return event.Null, true
			}
			return event.Str(strings.TrimSpace(args[0].AsString())), true
		},
	})
}
