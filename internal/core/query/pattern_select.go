package query

import (
	"strconv"
	"strings"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/processor"
)

// PatternAttrResolver resolves `alias.column` against the stream a pattern
// step's alias is bound to, returning the column's index and declared
// type within that stream's schema.
type PatternAttrResolver func(alias, column string) (int, event.AttributeType, bool)

// PatternSelectItem is one parsed `alias[idx].column [AS name]` /
// `alias.column [AS name]` projection (spec §6:
// "SELECT e1[0].user, e2.reason").
type PatternSelectItem struct {
	OutputName string
	Expr       executor.Executor
}

// ParsePatternSelectList parses the comma-separated projection list of a
// PATTERN query (the SELECT text extractPatternBody returns). positions maps each step alias to its
// chain position (pattern.Chain numbering); resolve looks up a column
// within the stream bound to that alias.
func ParsePatternSelectList(text string, positions map[string]int, resolve PatternAttrResolver) ([]PatternSelectItem, error) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, "SELECT") {
		text = strings.TrimSpace(text[len("SELECT"):])
	}

	var items []PatternSelectItem
	for _, part := range splitTopLevel(text, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		item, err := parsePatternSelectItem(part, positions, resolve)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if len(items) == 0 {
		return nil, errs.New(errs.ValidationFailed, "PATTERN query SELECT list is empty")
	}
	return items, nil
}

// patternAggFuncs maps a SELECT-list function name to the processor.AggregateFunc
// constructor CollectionAggregationExecutor folds a pattern step's whole
// chain through (spec SPEC_FULL.md §C.7), reusing the same accumulators
// GroupByAggregator uses for GROUP BY so both surfaces agree on SUM/AVG/MIN/
// MAX semantics.
var patternAggFuncs = map[string]func(event.AttributeType) processor.AggregateFunc{
	"sum":   func(t event.AttributeType) processor.AggregateFunc { return processor.NewSum(t) },
	"count": func(event.AttributeType) processor.AggregateFunc { return processor.NewCount() },
	"avg":   func(event.AttributeType) processor.AggregateFunc { return processor.NewAvg() },
	"min":   func(event.AttributeType) processor.AggregateFunc { return processor.NewMin() },
	"max":   func(event.AttributeType) processor.AggregateFunc { return processor.NewMax() },
}

// parseCollectionAggregate recognizes `func(alias[start:].column)` (spec
// SPEC_FULL.md §C.7, e.g. "sum(e1[0:].amount)"): a slice-bounded reference
// into a pattern position's whole event chain, reduced by one of the
// GROUP BY aggregate functions. isAgg=false (err=nil) means expr isn't this
// shape at all, so the caller falls through to ordinary alias.column/
// alias[idx].column parsing.
func parseCollectionAggregate(expr, outputName string, positions map[string]int, resolve PatternAttrResolver) (item *PatternSelectItem, isAgg bool, err error) {
	open := strings.IndexByte(expr, '(')
	if open <= 0 || !strings.HasSuffix(expr, ")") {
		return nil, false, nil
	}
	fname := strings.ToLower(strings.TrimSpace(expr[:open]))
	ctor, known := patternAggFuncs[fname]
	if !known {
		return nil, false, nil
	}
	inner := strings.TrimSpace(expr[open+1 : len(expr)-1])

	br := strings.IndexByte(inner, '[')
	if br < 0 {
		return nil, false, nil
	}
	closeBr := strings.IndexByte(inner, ']')
	if closeBr < br {
		return nil, true, errs.New(errs.ValidationFailed, "malformed slice reference: "+inner)
	}
	rangeTok := inner[br+1 : closeBr]
	if !strings.Contains(rangeTok, ":") {
		// A plain index (no colon) is an ordinary IndexedVariable reference,
		// not a slice — let the caller parse it normally.
		return nil, false, nil
	}

	alias := inner[:br]
	rest := inner[closeBr+1:]
	if !strings.HasPrefix(rest, ".") {
		return nil, true, errs.New(errs.ValidationFailed, "expected '.column' after slice in "+inner)
	}
	col := rest[1:]

	position, found := positions[alias]
	if !found {
		return nil, true, errs.New(errs.ValidationFailed, "unknown pattern alias: "+alias)
	}
	attrIdx, attrType, found := resolve(alias, col)
	if !found {
		return nil, true, errs.New(errs.ValidationFailed, "unknown column "+col+" on pattern alias "+alias)
	}

	returnType := attrType
	if fname == "count" {
		returnType = event.TypeLong
	} else if fname == "avg" || fname == "min" || fname == "max" {
		returnType = event.TypeDouble
	}

	reduce := func(values []event.AttributeValue) (event.AttributeValue, bool) {
		agg := ctor(attrType)
		for _, v := range values {
			agg.Add(v)
		}
		return agg.Value(), true
	}

	if outputName == "" {
		outputName = fname + "_" + col
	}
	return &PatternSelectItem{
		OutputName: outputName,
		Expr: &executor.CollectionAggregationExecutor{
			Position:  position,
			AttrIndex: attrIdx,
			Reduce:    reduce,
			ValueType: returnType,
		},
	}, true, nil
}

func parsePatternSelectItem(part string, positions map[string]int, resolve PatternAttrResolver) (*PatternSelectItem, error) {
	expr := part
	outputName := ""
	if idx := strings.LastIndex(strings.ToUpper(part), " AS "); idx >= 0 {
		expr = strings.TrimSpace(part[:idx])
		outputName = strings.TrimSpace(part[idx+4:])
	}

	if aggItem, isAgg, aggErr := parseCollectionAggregate(expr, outputName, positions, resolve); isAgg {
		return aggItem, aggErr
	}

	alias := expr
	index := executor.LastIndex
	col := ""

	if br := strings.IndexByte(expr, '['); br >= 0 {
		alias = expr[:br]
		closeBr := strings.IndexByte(expr, ']')
		if closeBr < 0 || closeBr < br {
			return nil, errs.New(errs.ValidationFailed, "malformed indexed reference: "+expr)
		}
		idxTok := strings.TrimSpace(expr[br+1 : closeBr])
		if !strings.EqualFold(idxTok, "last") {
			n, err := strconv.Atoi(idxTok)
			if err != nil {
				return nil, errs.Wrap(errs.ValidationFailed, "malformed index in "+expr, err)
			}
			index = n
		}
		rest := expr[closeBr+1:]
		if !strings.HasPrefix(rest, ".") {
			return nil, errs.New(errs.ValidationFailed, "expected '.column' after index in "+expr)
		}
		col = rest[1:]
	} else if dot := strings.IndexByte(expr, '.'); dot >= 0 {
		alias = expr[:dot]
		col = expr[dot+1:]
	} else {
		return nil, errs.New(errs.ValidationFailed, "expected alias.column or alias[idx].column, got: "+expr)
	}

	position, ok := positions[alias]
	if !ok {
		return nil, errs.New(errs.ValidationFailed, "unknown pattern alias: "+alias)
	}
	attrIdx, attrType, ok := resolve(alias, col)
	if !ok {
		return nil, errs.New(errs.ValidationFailed, "unknown column "+col+" on pattern alias "+alias)
	}

	if outputName == "" {
		outputName = col
	}
	return &PatternSelectItem{
		OutputName: outputName,
		Expr:       executor.NewIndexedVariable(position, index, attrIdx, attrType),
	}, nil
}
