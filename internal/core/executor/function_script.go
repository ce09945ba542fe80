package executor

import (
	"github.com/dop251/goja"
	"github.com/eventflux-io/engine/internal/core/event"
)

// RegisterScriptFunction registers a user-defined scalar function whose body
// is a JavaScript expression, executed in a sandboxed goja VM. Grounded on
// the teacher's system/tee/script_engine.go, which runs untrusted JS in a
// fresh goja.Runtime per call for isolation; we do the same here rather than
// reuse a single VM, since expression executors must be safely clonable and
// concurrently invocable across processor chains (spec §4.1 "All executors
// are clone_executor(app_ctx)").
//
// The script receives its arguments as a JS array named `args` and must
// evaluate to the result value, which is converted to returnType (a JS
// undefined or null result becomes SQL null). A thrown exception, or a
// returnType outside STRING/BOOL/INT/LONG/FLOAT/DOUBLE, is a hard error.
func RegisterScriptFunction(r *FunctionRegistry, name string, returnType event.AttributeType, source string) {
	r.Register(name, FunctionSpec{
		ReturnType: returnType,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			vm := goja.New()

			jsArgs := make([]interface{}, len(args))
			for i, a := range args {
				if a.IsNull() {
					jsArgs[i] = nil
					continue
				}
				switch a.Type() {
				case event.TypeString:
					jsArgs[i] = a.AsString()
				case event.TypeBool:
					jsArgs[i] = a.AsBool()
				default:
					f, _ := a.AsFloat64()
					jsArgs[i] = f
				}
			}
			if err := vm.Set("args", jsArgs); err != nil {
				return event.Null, false
			}

			result, err := vm.RunString(source)
			if err != nil {
				return event.Null, false
			}
			return convertJSResult(result, returnType)
		},
	})
}

func convertJSResult(v goja.Value, want event.AttributeType) (event.AttributeValue, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return event.Null, true
	}
	switch want {
	case event.TypeString:
		return event.Str(v.String()), true
	case event.TypeBool:
		return event.Bool(v.ToBoolean()), true
	case event.TypeInt:
		return event.Int(int32(v.ToInteger())), true
	case event.TypeLong:
		return event.Long(v.ToInteger()), true
	case event.TypeFloat:
		return event.Float(float32(v.ToFloat())), true
	case event.TypeDouble:
		return event.Double(v.ToFloat()), true
	default:
		return event.Null, false
	}
}
