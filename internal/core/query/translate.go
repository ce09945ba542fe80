package query

import (
	"strconv"
	"strings"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/xwb1989/sqlparser"
)

// ColumnResolver looks up a (possibly qualified) column reference against
// whatever relation(s) are in scope for the expression being translated,
// returning the Section/index/type a Variable executor needs (spec §4.1).
type ColumnResolver func(qualifier, name string) (executor.Section, int, event.AttributeType, bool)

// Translator turns an xwb1989/sqlparser Expr tree into an executor.Executor
// tree (spec §4.6 step 3: "type-check SELECT expressions"). Grounded on
// original_source/src/core/util/parser/expression_parser.rs for the
// node-by-node dispatch shape, generalized from a hand-rolled tokenizer to
// an off-the-shelf SQL AST.
type Translator struct {
	Registry *executor.FunctionRegistry
	Resolve  ColumnResolver

	// Aggregates, when non-nil, diverts any aggregate FuncExpr (SUM, COUNT,
	// AVG, MIN, MAX) encountered during translation into an AggregateSpec
	// appended here, returning a SectionOutput Variable referencing the new
	// slot instead of inlining the aggregate call (spec §4.2: "aggregations
	// emit ... accumulator state"). nil means aggregates are a translation
	// error (a WHERE clause, for instance, may never contain one).
	Aggregates *[]processor.AggregateSpec
}

func (t *Translator) Expr(e sqlparser.Expr) (executor.Executor, error) {
	switch n := e.(type) {
	case *sqlparser.AndExpr:
		l, err := t.Expr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := t.Expr(n.Right)
		if err != nil {
			return nil, err
		}
		return executor.NewAnd(l, r), nil

	case *sqlparser.OrExpr:
		l, err := t.Expr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := t.Expr(n.Right)
		if err != nil {
			return nil, err
		}
		return executor.NewOr(l, r), nil

	case *sqlparser.NotExpr:
		inner, err := t.Expr(n.Expr)
		if err != nil {
			return nil, err
		}
		return executor.NewNot(inner), nil

	case *sqlparser.ParenExpr:
		return t.Expr(n.Expr)

	case *sqlparser.ComparisonExpr:
		return t.comparison(n)

	case *sqlparser.BinaryExpr:
		return t.binary(n)

	case *sqlparser.SQLVal:
		return t.literal(n)

	case *sqlparser.NullVal:
		return executor.NewConst(event.Null), nil

	case *sqlparser.BoolVal:
		return executor.NewConst(event.Bool(bool(*n))), nil

	case *sqlparser.ColName:
		return t.column(n)

	case *sqlparser.FuncExpr:
		return t.funcExpr(n)

	case *sqlparser.CaseExpr:
		return t.caseExpr(n)

	case *sqlparser.ConvertExpr:
		return t.convert(n)

	default:
		return nil, errs.New(errs.ValidationFailed, "unsupported SQL expression shape")
	}
}

func (t *Translator) column(n *sqlparser.ColName) (executor.Executor, error) {
	qualifier := n.Qualifier.Name.String()
	name := n.Name.String()
	section, idx, typ, ok := t.Resolve(qualifier, name)
	if !ok {
		ref := name
		if qualifier != "" {
			ref = qualifier + "." + name
		}
		return nil, errs.New(errs.ValidationFailed, "unknown column reference: "+ref)
	}
	return executor.NewVariable(section, idx, typ), nil
}

func (t *Translator) literal(n *sqlparser.SQLVal) (executor.Executor, error) {
	switch n.Type {
	case sqlparser.StrVal:
		return executor.NewConst(event.Str(string(n.Val))), nil
	case sqlparser.IntVal:
		i, err := strconv.ParseInt(string(n.Val), 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.ValidationFailed, "malformed integer literal", err)
		}
		if i >= -(1<<31) && i < (1<<31) {
			return executor.NewConst(event.Int(int32(i))), nil
		}
		return executor.NewConst(event.Long(i)), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(n.Val), 64)
		if err != nil {
			return nil, errs.Wrap(errs.ValidationFailed, "malformed float literal", err)
		}
		return executor.NewConst(event.Double(f)), nil
	default:
		return nil, errs.New(errs.ValidationFailed, "unsupported SQL literal shape")
	}
}

var comparisonOps = map[string]executor.CompareOp{
	sqlparser.EqualStr:        executor.Eq,
	sqlparser.NotEqualStr:     executor.Neq,
	sqlparser.LessThanStr:     executor.Lt,
	sqlparser.LessEqualStr:    executor.Lte,
	sqlparser.GreaterThanStr:  executor.Gt,
	sqlparser.GreaterEqualStr: executor.Gte,
}

func (t *Translator) comparison(n *sqlparser.ComparisonExpr) (executor.Executor, error) {
	op, ok := comparisonOps[n.Operator]
	if !ok {
		return nil, errs.New(errs.ValidationFailed, "unsupported comparison operator: "+n.Operator)
	}
	l, err := t.Expr(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := t.Expr(n.Right)
	if err != nil {
		return nil, err
	}
	return executor.NewCompare(op, l, r), nil
}

var arithOps = map[string]executor.ArithOp{
	sqlparser.PlusStr:  executor.Add,
	sqlparser.MinusStr: executor.Sub,
	sqlparser.MultStr:  executor.Mul,
	sqlparser.DivStr:   executor.Div,
	sqlparser.ModStr:   executor.Mod,
}

func (t *Translator) binary(n *sqlparser.BinaryExpr) (executor.Executor, error) {
	op, ok := arithOps[n.Operator]
	if !ok {
		return nil, errs.New(errs.ValidationFailed, "unsupported binary operator: "+n.Operator)
	}
	l, err := t.Expr(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := t.Expr(n.Right)
	if err != nil {
		return nil, err
	}
	return executor.NewArithmetic(op, l, r)
}

func (t *Translator) convert(n *sqlparser.ConvertExpr) (executor.Executor, error) {
	operand, err := t.Expr(n.Expr)
	if err != nil {
		return nil, err
	}
	typ, err := parseAttributeType(n.Type.Type)
	if err != nil {
		return nil, err
	}
	return executor.NewCast(operand, typ), nil
}

func (t *Translator) caseExpr(n *sqlparser.CaseExpr) (executor.Executor, error) {
	var branches []executor.CaseBranch
	var operand executor.Executor
	var err error
	if n.Expr != nil {
		operand, err = t.Expr(n.Expr)
		if err != nil {
			return nil, err
		}
	}
	for _, w := range n.Whens {
		result, err := t.Expr(w.Val)
		if err != nil {
			return nil, err
		}
		if operand != nil {
			whenVal, err := t.Expr(w.Cond)
			if err != nil {
				return nil, err
			}
			branches = append(branches, executor.CaseBranch{Cond: executor.NewCompare(executor.Eq, operand, whenVal), Result: result})
			continue
		}
		cond, err := t.Expr(w.Cond)
		if err != nil {
			return nil, err
		}
		branches = append(branches, executor.CaseBranch{Cond: cond, Result: result})
	}
	var elseExpr executor.Executor
	if n.Else != nil {
		elseExpr, err = t.Expr(n.Else)
		if err != nil {
			return nil, err
		}
	}
	return executor.NewCase(branches, elseExpr)
}

// aggregateNames is the set of function names translated as aggregates;
// newAggregateAcc constructs each one's AggregateFunc accumulator, given the
// inner expression's static return type (spec §4.2; only SUM takes that
// type, the other accumulators are built without it).
var aggregateNames = map[string]bool{"sum": true, "count": true, "avg": true, "min": true, "max": true}

func newAggregateAcc(name string, innerType event.AttributeType) processor.AggregateFunc {
	switch name {
	case "sum":
		return processor.NewSum(innerType)
	case "count":
		return processor.NewCount()
	case "avg":
		return processor.NewAvg()
	case "min":
		return processor.NewMin()
	case "max":
		return processor.NewMax()
	default:
		return nil
	}
}

func (t *Translator) funcExpr(n *sqlparser.FuncExpr) (executor.Executor, error) {
	name := n.Name.Lowered()
	if aggregateNames[name] {
		return t.aggregateCall(name, n)
	}

	args := make([]executor.Executor, 0, len(n.Exprs))
	for _, se := range n.Exprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, errs.New(errs.ValidationFailed, "unsupported argument shape in function call: "+name)
		}
		a, err := t.Expr(aliased.Expr)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	call, err := executor.NewFunctionCall(t.Registry, name, args)
	if err != nil {
		return nil, err
	}
	return call, nil
}

func (t *Translator) aggregateCall(name string, n *sqlparser.FuncExpr) (executor.Executor, error) {
	if t.Aggregates == nil {
		return nil, errs.New(errs.ValidationFailed, "aggregate function "+name+" is not allowed here")
	}
	var innerType event.AttributeType = event.TypeLong
	var innerExpr executor.Executor
	if name != "count" || len(n.Exprs) > 0 {
		if len(n.Exprs) != 1 {
			return nil, errs.New(errs.ValidationFailed, name+" takes exactly one argument")
		}
		switch arg := n.Exprs[0].(type) {
		case *sqlparser.StarExpr:
			innerExpr = executor.NewConst(event.Int(1))
		case *sqlparser.AliasedExpr:
			var err error
			innerExpr, err = t.Expr(arg.Expr)
			if err != nil {
				return nil, err
			}
			innerType = innerExpr.ReturnType()
		default:
			return nil, errs.New(errs.ValidationFailed, "unsupported aggregate argument shape")
		}
	} else {
		innerExpr = executor.NewConst(event.Int(1))
	}

	acc := newAggregateAcc(name, innerType)
	slot := len(*t.Aggregates)
	*t.Aggregates = append(*t.Aggregates, processor.AggregateSpec{Name: name, Expr: innerExpr, Acc: acc})
	return executor.NewVariable(executor.SectionOutput, slot, acc.ReturnType()), nil
}

// containsAggregate reports whether expr references an aggregate function
// anywhere in its tree, without performing a full translation — used to
// decide whether a query needs a GroupByAggregator stage at all (spec §4.2:
// an aggregate with no GROUP BY is an implicit single group).
func containsAggregate(e sqlparser.Expr) bool {
	found := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if fn, ok := node.(*sqlparser.FuncExpr); ok && aggregateNames[fn.Name.Lowered()] {
			found = true
			return false, nil
		}
		return true, nil
	}, e)
	return found
}

// selectExprName returns the output column's display name: its AS alias if
// given, else the bare column name for a plain column reference, else
// fallback (trimmed) for any other unaliased expression.
func selectExprName(se *sqlparser.AliasedExpr, fallback string) string {
	if as := se.As.String(); as != "" {
		return as
	}
	if col, ok := se.Expr.(*sqlparser.ColName); ok {
		return col.Name.String()
	}
	return strings.TrimSpace(fallback)
}
