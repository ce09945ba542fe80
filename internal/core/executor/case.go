package executor

import "github.com/eventflux-io/engine/internal/core/event"

// CaseBranch is one WHEN cond THEN result arm (searched CASE) or one WHEN
// value THEN result arm (simple CASE, where Cond is an equality Compare
// against the simple-CASE operand, built by the caller).
type CaseBranch struct {
	Cond   Executor
	Result Executor
}

// Case implements both searched and simple CASE (spec §4.1). The parser is
// responsible for injecting an ELSE Null branch as the final fallback when
// the source SQL omits one, and for validating that every branch's Result
// shares a unifiable return type before construction — NewCase re-validates
// defensively since a build-time coding error here should fail loudly rather
// than silently narrow a type.
type Case struct {
	Branches  []CaseBranch
	Else      Executor
	ValueType event.AttributeType
}

// NewCase validates that every branch (and Else) shares the same return type
// as the first branch.
func NewCase(branches []CaseBranch, elseExpr Executor) (*Case, error) {
	if len(branches) == 0 {
		return nil, &typeError{msg: "CASE requires at least one WHEN branch"}
	}
	t := branches[0].Result.ReturnType()
	for _, b := range branches {
		if b.Result.ReturnType() != t && t != event.TypeNull && b.Result.ReturnType() != event.TypeNull {
			return nil, &typeError{msg: "CASE branches must share a unifiable return type"}
		}
	}
	if elseExpr != nil {
		et := elseExpr.ReturnType()
		if et != t && t != event.TypeNull && et != event.TypeNull {
			return nil, &typeError{msg: "CASE ELSE must share the branches' return type"}
		}
	}
	return &Case{Branches: branches, Else: elseExpr, ValueType: t}, nil
}

func (c *Case) Execute(ctx Context) (event.AttributeValue, bool) {
	for _, b := range c.Branches {
		cond, ok := b.Cond.Execute(ctx)
		if !ok {
			return event.Null, false
		}
		if !cond.IsNull() && cond.AsBool() {
			return b.Result.Execute(ctx)
		}
	}
	if c.Else != nil {
		return c.Else.Execute(ctx)
	}
	return event.Null, true
}
func (c *Case) ReturnType() event.AttributeType { return c.ValueType }
func (c *Case) Clone() Executor {
	branches := make([]CaseBranch, len(c.Branches))
	for i, b := range c.Branches {
		branches[i] = CaseBranch{Cond: b.Cond.Clone(), Result: b.Result.Clone()}
	}
	var elseClone Executor
	if c.Else != nil {
		elseClone = c.Else.Clone()
	}
	return &Case{Branches: branches, Else: elseClone, ValueType: c.ValueType}
}

// NewSimpleCaseEquality builds the Cond executors for a simple CASE
// (`CASE operand WHEN value THEN result ...`) by wrapping each WHEN value in
// an equality Compare against operand — the parser calls this once per
// branch before delegating to NewCase, keeping Case itself only aware of
// the searched form.
func NewSimpleCaseEquality(operand Executor, whenValues []Executor, results []Executor) ([]CaseBranch, error) {
	if len(whenValues) != len(results) {
		return nil, &typeError{msg: "CASE WHEN/THEN arity mismatch"}
	}
	branches := make([]CaseBranch, len(whenValues))
	for i := range whenValues {
		branches[i] = CaseBranch{Cond: NewCompare(Eq, operand, whenValues[i]), Result: results[i]}
	}
	return branches, nil
}
