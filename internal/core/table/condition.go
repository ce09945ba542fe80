package table

import "github.com/eventflux-io/engine/internal/core/event"

// ExprCondition falls back to per-row expression evaluation for any
// predicate shape that isn't a simple per-column equality (spec §4.5:
// "all others fall back to per-row expression evaluation").
type ExprCondition struct {
	Eval func(row Row) bool
}

func (c ExprCondition) Matches(row Row) bool { return c.Eval(row) }

// EqualityCondition is the compiled fast path: a value-per-column equality,
// looked up via an index before falling back to a scan (spec §4.5:
// "expressions whose shape reduces to a value-per-column equality are
// compiled to InMemoryCompiledCondition{values}").
type EqualityCondition struct {
	Values map[int]event.AttributeValue
}

func (c EqualityCondition) Matches(row Row) bool {
	for i, v := range c.Values {
		if i < 0 || i >= len(row) || !row[i].Equal(v) {
			return false
		}
	}
	return true
}

// IndexKey returns a canonical string encoding of the condition's value-set
// for hash-index lookups, and ok=false if this condition doesn't pin every
// indexed column (forcing a scan instead).
func (c EqualityCondition) IndexKey(indexCols []int) (string, bool) {
	key := ""
	for _, col := range indexCols {
		v, ok := c.Values[col]
		if !ok {
			return "", false
		}
		key += v.String() + "\x1f"
	}
	return key, true
}
