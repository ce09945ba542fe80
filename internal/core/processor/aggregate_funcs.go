package processor

import "github.com/eventflux-io/engine/internal/core/event"

// sumAgg accumulates a running sum; Remove supports windowed retraction.
type sumAgg struct {
	returnType event.AttributeType
	sum        float64
	count      int64
}

func NewSum(returnType event.AttributeType) AggregateFunc { return &sumAgg{returnType: returnType} }

func (a *sumAgg) Add(v event.AttributeValue) {
	if f, ok := v.AsFloat64(); ok {
		a.sum += f
		a.count++
	}
}
func (a *sumAgg) Remove(v event.AttributeValue) {
	if f, ok := v.AsFloat64(); ok {
		a.sum -= f
		a.count--
	}
}
func (a *sumAgg) Value() event.AttributeValue {
	if a.count == 0 {
		return event.Null
	}
	switch a.returnType {
	case event.TypeInt:
		return event.Int(int32(a.sum))
	case event.TypeLong:
		return event.Long(int64(a.sum))
	case event.TypeFloat:
		return event.Float(float32(a.sum))
	default:
		return event.Double(a.sum)
	}
}
func (a *sumAgg) ReturnType() event.AttributeType { return a.returnType }
func (a *sumAgg) New() AggregateFunc              { return &sumAgg{returnType: a.returnType} }

// countAgg counts non-null inputs regardless of their value.
type countAgg struct{ n int64 }

func NewCount() AggregateFunc { return &countAgg{} }

func (a *countAgg) Add(v event.AttributeValue) {
	if !v.IsNull() {
		a.n++
	}
}
func (a *countAgg) Remove(v event.AttributeValue) {
	if !v.IsNull() && a.n > 0 {
		a.n--
	}
}
func (a *countAgg) Value() event.AttributeValue     { return event.Long(a.n) }
func (a *countAgg) ReturnType() event.AttributeType { return event.TypeLong }
func (a *countAgg) New() AggregateFunc              { return &countAgg{} }

// avgAgg tracks sum and count to derive a running mean.
type avgAgg struct {
	sum   float64
	count int64
}

func NewAvg() AggregateFunc { return &avgAgg{} }

func (a *avgAgg) Add(v event.AttributeValue) {
	if f, ok := v.AsFloat64(); ok {
		a.sum += f
		a.count++
	}
}
func (a *avgAgg) Remove(v event.AttributeValue) {
	if f, ok := v.AsFloat64(); ok {
		a.sum -= f
		a.count--
	}
}
func (a *avgAgg) Value() event.AttributeValue {
	if a.count == 0 {
		return event.Null
	}
	return event.Double(a.sum / float64(a.count))
}
func (a *avgAgg) ReturnType() event.AttributeType { return event.TypeDouble }
func (a *avgAgg) New() AggregateFunc              { return &avgAgg{} }

// minMaxAgg tracks MIN or MAX over a multiset, supporting retraction by
// keeping every live value in a small sorted multiset — windows in this
// engine are bounded (length/time/batch), so this stays small in practice.
type minMaxAgg struct {
	isMax  bool
	values []float64
}

func NewMin() AggregateFunc { return &minMaxAgg{isMax: false} }
func NewMax() AggregateFunc { return &minMaxAgg{isMax: true} }

func (a *minMaxAgg) Add(v event.AttributeValue) {
	if f, ok := v.AsFloat64(); ok {
		a.values = append(a.values, f)
	}
}
func (a *minMaxAgg) Remove(v event.AttributeValue) {
	f, ok := v.AsFloat64()
	if !ok {
		return
	}
	for i, existing := range a.values {
		if existing == f {
			a.values = append(a.values[:i], a.values[i+1:]...)
			return
		}
	}
}
func (a *minMaxAgg) Value() event.AttributeValue {
	if len(a.values) == 0 {
		return event.Null
	}
	best := a.values[0]
	for _, v := range a.values[1:] {
		if (a.isMax && v > best) || (!a.isMax && v < best) {
			best = v
		}
	}
	return event.Double(best)
}
func (a *minMaxAgg) ReturnType() event.AttributeType { return event.TypeDouble }
func (a *minMaxAgg) New() AggregateFunc              { return &minMaxAgg{isMax: a.isMax} }
