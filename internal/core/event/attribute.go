// Package event holds the value-typed event model and the containers that
// flow events through the query runtime graph: Event, StreamEvent chains,
// StateEvent multi-position chains, and their cloning machinery.
//
// Grounded on original_source/src/core/event/event.rs for the Event boundary
// record, and on the teacher's tagged-result idioms (infrastructure/errors)
// for the exhaustive-match style used by the attribute lattice below.
package event

import (
	"fmt"
	"math"
)

// AttributeType is the closed set of value kinds an AttributeValue can hold.
type AttributeType int

const (
	TypeInt AttributeType = iota
	TypeLong
	TypeFloat
	TypeDouble
	TypeBool
	TypeString
	TypeBytes
	TypeObject
	TypeNull
)

func (t AttributeType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeLong:
		return "LONG"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeBool:
		return "BOOL"
	case TypeString:
		return "STRING"
	case TypeBytes:
		return "BYTES"
	case TypeObject:
		return "OBJECT"
	case TypeNull:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// numericRank orders the widening lattice: Int ⊂ Long ⊂ Double, Float ⊂ Double.
// Higher rank wins when two numeric types are combined.
func numericRank(t AttributeType) int {
	switch t {
	case TypeInt:
		return 0
	case TypeFloat:
		return 1
	case TypeLong:
		return 2
	case TypeDouble:
		return 3
	default:
		return -1
	}
}

// IsNumeric reports whether t participates in the numeric widening lattice.
func IsNumeric(t AttributeType) bool {
	return numericRank(t) >= 0
}

// WidenedType returns the result type of combining two numeric types per the
// Int ⊂ Long ⊂ Double, Float ⊂ Double lattice (spec §3).
func WidenedType(a, b AttributeType) (AttributeType, bool) {
	ra, rb := numericRank(a), numericRank(b)
	if ra < 0 || rb < 0 {
		return TypeNull, false
	}
	// Float and Long are incomparable except both widen into Double.
	if (a == TypeFloat && b == TypeLong) || (a == TypeLong && b == TypeFloat) {
		return TypeDouble, true
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}

// AttributeValue is the tagged-union value carried by every stream position.
type AttributeValue struct {
	typ AttributeType
	i   int32
	l   int64
	f   float32
	d   float64
	b   bool
	s   string
	by  []byte
	obj interface{}
}

// Null is the SQL-null attribute value.
var Null = AttributeValue{typ: TypeNull}

func Int(v int32) AttributeValue    { return AttributeValue{typ: TypeInt, i: v} }
func Long(v int64) AttributeValue   { return AttributeValue{typ: TypeLong, l: v} }
func Float(v float32) AttributeValue { return AttributeValue{typ: TypeFloat, f: v} }
func Double(v float64) AttributeValue { return AttributeValue{typ: TypeDouble, d: v} }
func Bool(v bool) AttributeValue    { return AttributeValue{typ: TypeBool, b: v} }
func Str(v string) AttributeValue   { return AttributeValue{typ: TypeString, s: v} }
func Bytes(v []byte) AttributeValue { return AttributeValue{typ: TypeBytes, by: v} }
func Object(v interface{}) AttributeValue { return AttributeValue{typ: TypeObject, obj: v} }

// Type returns the variant tag.
func (v AttributeValue) Type() AttributeType { return v.typ }

// IsNull reports whether this value is the SQL-null variant.
func (v AttributeValue) IsNull() bool { return v.typ == TypeNull }

func (v AttributeValue) AsInt() int32       { return v.i }
func (v AttributeValue) AsLong() int64      { return v.l }
func (v AttributeValue) AsFloat() float32   { return v.f }
func (v AttributeValue) AsDouble() float64  { return v.d }
func (v AttributeValue) AsBool() bool       { return v.b }
func (v AttributeValue) AsString() string   { return v.s }
func (v AttributeValue) AsBytes() []byte    { return v.by }
func (v AttributeValue) AsObject() interface{} { return v.obj }

// AsFloat64 widens any numeric variant to float64, for use by the arithmetic
// and comparison executors. ok is false for non-numeric/null values.
func (v AttributeValue) AsFloat64() (float64, bool) {
	switch v.typ {
	case TypeInt:
		return float64(v.i), true
	case TypeLong:
		return float64(v.l), true
	case TypeFloat:
		return float64(v.f), true
	case TypeDouble:
		return v.d, true
	default:
		return 0, false
	}
}

// Equal implements SQL equality semantics: NULL is never equal to anything,
// including another NULL (spec §3, §4.1 CASE notes).
func (v AttributeValue) Equal(o AttributeValue) bool {
	if v.typ == TypeNull || o.typ == TypeNull {
		return false
	}
	if IsNumeric(v.typ) && IsNumeric(o.typ) {
		a, _ := v.AsFloat64()
		b, _ := o.AsFloat64()
		return a == b
	}
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeBool:
		return v.b == o.b
	case TypeString:
		return v.s == o.s
	case TypeBytes:
		if len(v.by) != len(o.by) {
			return false
		}
		for i := range v.by {
			if v.by[i] != o.by[i] {
				return false
			}
		}
		return true
	case TypeObject:
		return v.obj == o.obj
	default:
		return false
	}
}

// Compare returns -1/0/1 for numeric or same-tag comparable values, and ok=false
// for non-numeric cross-type or unsupported comparisons (spec §4.1 Compare).
func (v AttributeValue) Compare(o AttributeValue) (int, bool) {
	if v.typ == TypeNull || o.typ == TypeNull {
		return 0, false
	}
	if IsNumeric(v.typ) && IsNumeric(o.typ) {
		a, _ := v.AsFloat64()
		b, _ := o.AsFloat64()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	if v.typ != o.typ {
		return 0, false
	}
	switch v.typ {
	case TypeString:
		switch {
		case v.s < o.s:
			return -1, true
		case v.s > o.s:
			return 1, true
		default:
			return 0, true
		}
	case TypeBool:
		if v.b == o.b {
			return 0, true
		}
		if !v.b {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func (v AttributeValue) String() string {
	switch v.typ {
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeLong:
		return fmt.Sprintf("%d", v.l)
	case TypeFloat:
		return fmt.Sprintf("%v", v.f)
	case TypeDouble:
		return fmt.Sprintf("%v", v.d)
	case TypeBool:
		return fmt.Sprintf("%v", v.b)
	case TypeString:
		return v.s
	case TypeBytes:
		return fmt.Sprintf("%x", v.by)
	case TypeObject:
		return fmt.Sprintf("%v", v.obj)
	default:
		return "null"
	}
}

// Clone deep-copies the value (byte slices are copied; scalars are copied by
// value already). Needed so fan-out cloners never let two subscribers alias
// the same backing array (spec invariant I1).
func (v AttributeValue) Clone() AttributeValue {
	if v.typ != TypeBytes || v.by == nil {
		return v
	}
	cp := make([]byte, len(v.by))
	copy(cp, v.by)
	nv := v
	nv.by = cp
	return nv
}

// WrapInt32 implements the wrapping-integer semantics required of
// Arithmetic executors (spec §4.1): addition/subtraction/multiplication on
// Int/Long use Go's native wraparound, this helper exists only to make the
// choice explicit at call sites that need to force a particular width.
func WrapInt32(v int64) int32 {
	return int32(v & 0xFFFFFFFF)
}

// SafeCastRange reports whether v fits in the narrower numeric type t
// without loss, used by the CAST executor's overflow check (spec §4.1).
func SafeCastRange(v float64, t AttributeType) bool {
	switch t {
	case TypeInt:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case TypeLong:
		return v >= math.MinInt64 && v <= math.MaxInt64
	case TypeFloat:
		return v >= -math.MaxFloat32 && v <= math.MaxFloat32
	default:
		return true
	}
}
