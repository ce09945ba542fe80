package executor

import (
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
)

// registerTimeFunctions installs the time/date built-ins referenced by spec
// §4.1 ("Function call ... built-ins: math, string, UUID, time/date, type
// conversion"). Grounded on the scheduler's injectable clock (§9) so
// `currentTimeMillis` stays deterministic under a mock clock in tests.
func registerTimeFunctions(r *FunctionRegistry, now func() time.Time) {
	r.Register("currentTimeMillis", FunctionSpec{
		ReturnType: event.TypeLong,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			return event.Long(now().UnixMilli()), true
		},
	})

	r.Register("dayOfWeek", FunctionSpec{
		ReturnType: event.TypeString,
		Impl: func(args []event.AttributeValue) (event.AttributeValue, bool) {
			if len(args) != 1 || args[0].IsNull() {
				return event.Null, true
			}
			ms, ok := args[0].AsFloat64()
			if !ok {
				return event.Null, false
			}
			t := time.UnixMilli(int64(ms)).UTC()
			return event.Str(t.Weekday().String()), true
		},
	})
}
