package executor

import (
	"strconv"

	"github.com/eventflux-io/engine/internal/core/event"
)

// Cast implements string<->numeric and numeric widening/narrowing casts,
// with a range check on narrowing that returns (Null, false) — a hard error,
// per spec §4.1 ("CAST (... numeric widening/narrowing with range check
// returning None on overflow)") rather than truncating silently.
type Cast struct {
	Operand   Executor
	Target    event.AttributeType
}

func NewCast(operand Executor, target event.AttributeType) *Cast {
	return &Cast{Operand: operand, Target: target}
}

func (c *Cast) Execute(ctx Context) (event.AttributeValue, bool) {
	v, ok := c.Operand.Execute(ctx)
	if !ok {
		return event.Null, false
	}
	if v.IsNull() {
		return event.Null, true
	}
	return castValue(v, c.Target)
}

func castValue(v event.AttributeValue, target event.AttributeType) (event.AttributeValue, bool) {
	switch target {
	case event.TypeString:
		return event.Str(v.String()), true
	case event.TypeBool:
		if v.Type() == event.TypeBool {
			return v, true
		}
		if v.Type() == event.TypeString {
			b, err := strconv.ParseBool(v.AsString())
			if err != nil {
				return event.Null, false
			}
			return event.Bool(b), true
		}
		return event.Null, false
	case event.TypeInt, event.TypeLong, event.TypeFloat, event.TypeDouble:
		var f float64
		switch v.Type() {
		case event.TypeString:
			parsed, err := strconv.ParseFloat(v.AsString(), 64)
			if err != nil {
				return event.Null, false
			}
			f = parsed
		default:
			parsed, ok := v.AsFloat64()
			if !ok {
				return event.Null, false
			}
			f = parsed
		}
		if !event.SafeCastRange(f, target) {
			return event.Null, false
		}
		switch target {
		case event.TypeInt:
			return event.Int(int32(f)), true
		case event.TypeLong:
			return event.Long(int64(f)), true
		case event.TypeFloat:
			return event.Float(float32(f)), true
		default:
			return event.Double(f), true
		}
	default:
		return event.Null, false
	}
}

func (c *Cast) ReturnType() event.AttributeType { return c.Target }
func (c *Cast) Clone() Executor                 { return &Cast{Operand: c.Operand.Clone(), Target: c.Target} }
