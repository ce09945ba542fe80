package executor

import (
	"strings"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/google/uuid"
)

// FunctionImpl is a built-in (or script-backed) scalar function: given the
// already-evaluated argument values, produce a result. ok=false is a hard
// type error.
type FunctionImpl func(args []event.AttributeValue) (event.AttributeValue, bool)

// FunctionSpec pairs an implementation with its declared return type, since
// Executor.ReturnType() must be resolvable at build time without executing
// anything.
type FunctionSpec struct {
	ReturnType event.AttributeType
	Impl       FunctionImpl
}

// FunctionRegistry is the pluggable function-call registry (spec §4.1:
// "Function call (pluggable registry — built-ins: math, string, UUID,
// time/date, type conversion)"). New entries — including goja-script-backed
// user-defined functions, see RegisterScriptFunction — are added with Register.
type FunctionRegistry struct {
	fns map[string]FunctionSpec
}

// NewFunctionRegistry builds a registry pre-populated with the engine's
// built-in functions.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{fns: make(map[string]FunctionSpec)}
	registerMathFunctions(r)
	registerStringFunctions(r)
	registerUUIDFunction(r)
	registerTimeFunctions(r, time.Now)
	return r
}

// NewFunctionRegistryWithClock is like NewFunctionRegistry but binds the
// time/date built-ins to an injectable clock, so tests can replay
// deterministic timestamps (spec §9, "allow injecting a mock clock").
func NewFunctionRegistryWithClock(now func() time.Time) *FunctionRegistry {
	r := &FunctionRegistry{fns: make(map[string]FunctionSpec)}
	registerMathFunctions(r)
	registerStringFunctions(r)
	registerUUIDFunction(r)
	registerTimeFunctions(r, now)
	return r
}

// Register adds or replaces a function by name (case-insensitive).
func (r *FunctionRegistry) Register(name string, spec FunctionSpec) {
	r.fns[strings.ToLower(name)] = spec
}

// Lookup returns the spec for name, if registered.
func (r *FunctionRegistry) Lookup(name string) (FunctionSpec, bool) {
	spec, ok := r.fns[strings.ToLower(name)]
	return spec, ok
}

// FunctionCall evaluates a registered function over its evaluated arguments.
type FunctionCall struct {
	Name     string
	Args     []Executor
	Spec     FunctionSpec
}

// NewFunctionCall resolves name against registry at build time. Returns an
// error if the function is unknown — this is a parse-time validation, not a
// runtime one.
func NewFunctionCall(registry *FunctionRegistry, name string, args []Executor) (*FunctionCall, error) {
	spec, ok := registry.Lookup(name)
	if !ok {
		return nil, &typeError{msg: "unknown function: " + name}
	}
	return &FunctionCall{Name: name, Args: args, Spec: spec}, nil
}

func (f *FunctionCall) Execute(ctx Context) (event.AttributeValue, bool) {
	vals := make([]event.AttributeValue, len(f.Args))
	for i, a := range f.Args {
		v, ok := a.Execute(ctx)
		if !ok {
			return event.Null, false
		}
		vals[i] = v
	}
	return f.Spec.Impl(vals)
}
func (f *FunctionCall) ReturnType() event.AttributeType { return f.Spec.ReturnType }
func (f *FunctionCall) Clone() Executor {
	args := make([]Executor, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Clone()
	}
	return &FunctionCall{Name: f.Name, Args: args, Spec: f.Spec}
}

func registerUUIDFunction(r *FunctionRegistry) {
	r.Register("uuid", FunctionSpec{
		ReturnType: event.TypeString,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			return event.Str(uuid.NewString()), true
		},
	})
}
