package query

import (
	"strconv"
	"strings"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
	"github.com/eventflux-io/engine/internal/core/table"
	"github.com/xwb1989/sqlparser"
)

// Compile parses sql (one or more ';'-separated statements) and returns a
// fully wired Runtime: every CREATE STREAM/TABLE registered in a SqlCatalog,
// every query statement's physical graph built and subscribed to its source
// junction(s) (spec §4.6: the five-step pipeline — split, register DDL,
// translate, build the physical graph, validate the resulting DAG).
//
// Grounded on the teacher's job-pipeline compile entrypoint (packages/
// com.r3e.services.oracle), generalized from one job config to an arbitrary
// SQL text.
func Compile(sql string, registry *executor.FunctionRegistry, sched *scheduler.Scheduler) (*Runtime, error) {
	catalog := NewSqlCatalog()
	statements := SplitStatements(sql)

	var queryStmts []string
	var partitionStmts []string
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		switch classify(stmt) {
		case stmtCreateStream, stmtCreateTable:
			def, err := ParseDDL(stmt)
			if err != nil {
				return nil, err
			}
			if err := catalog.Register(def); err != nil {
				return nil, err
			}
		case stmtCreatePartition:
			partitionStmts = append(partitionStmts, stmt)
		default:
			queryStmts = append(queryStmts, stmt)
		}
	}

	rt := NewRuntime(catalog, registry, sched)

	for _, stmt := range queryStmts {
		if err := rt.compileQueryStatement(stmt); err != nil {
			return nil, err
		}
	}
	for _, stmt := range partitionStmts {
		parsed, err := ParsePartition(stmt)
		if err != nil {
			return nil, err
		}
		if err := rt.compilePartitionStatement(parsed); err != nil {
			return nil, err
		}
	}

	if err := rt.Deps.DetectCycle(); err != nil {
		return nil, err
	}
	return rt, nil
}

// compileQueryStatement parses and wires one INSERT INTO ... SELECT ...
// statement (a bare SELECT with no target is rejected — spec §6: every
// query is materialized into a named stream).
func (rt *Runtime) compileQueryStatement(stmt string) error {
	target, selectText, ok := splitInsertInto(stmt)
	if !ok {
		return errs.New(errs.ValidationFailed, "query statement is not an INSERT INTO ... SELECT: "+stmt)
	}

	if isPatternQuery(selectText) {
		return rt.compilePatternStatement(target, selectText)
	}
	return rt.compileSelectStatement(target, selectText)
}

// compilePartitionStatement wires every query inside a `CREATE PARTITION BY
// key { ... }` block (spec §6), keying each on parsed.Key resolved against
// that query's own source stream schema. Only plain (non-join, non-pattern)
// queries are supported inside a partition body — see DESIGN.md.
func (rt *Runtime) compilePartitionStatement(parsed *ParsedPartition) error {
	for _, stmt := range parsed.Queries {
		if err := rt.compilePartitionedQuery(parsed.Key, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) compilePartitionedQuery(key, stmt string) error {
	target, selectText, ok := splitInsertInto(stmt)
	if !ok {
		return errs.New(errs.ValidationFailed, "partitioned statement is not an INSERT INTO ... SELECT: "+stmt)
	}
	if isPatternQuery(selectText) {
		return errs.New(errs.ValidationFailed, "PATTERN queries are not supported inside CREATE PARTITION BY")
	}

	cleaned, winSpec, _ := extractWindowClause(selectText)
	parsedStmt, err := sqlparser.Parse(cleaned)
	if err != nil {
		return errs.Wrap(errs.ValidationFailed, "malformed SELECT statement", err)
	}
	sel, ok := parsedStmt.(*sqlparser.Select)
	if !ok {
		return errs.New(errs.ValidationFailed, "expected a SELECT statement")
	}
	if len(sel.From) != 1 {
		return errs.New(errs.ValidationFailed, "expected exactly one FROM clause")
	}
	from, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return errs.New(errs.ValidationFailed, "CREATE PARTITION BY only supports a single-relation SELECT (no JOIN)")
	}

	srcName, err := tableName(from)
	if err != nil {
		return err
	}
	def, ok := rt.Catalog.Lookup(srcName)
	if !ok {
		return errs.New(errs.ValidationFailed, "query references undeclared relation: "+srcName)
	}
	keyIdx := def.AttributeIndex(key)
	if keyIdx < 0 {
		return errs.New(errs.ValidationFailed, "partition key '"+key+"' is not a column of stream "+srcName)
	}

	return rt.compilePlainSelect(target, sel, from, winSpec, func(q *LogicalSelect) error {
		return rt.BuildPartitionedSelect(q, keyIdx)
	})
}

func (rt *Runtime) compilePatternStatement(target, selectText string) error {
	body, tail, err := extractPatternBody(selectText)
	if err != nil {
		return err
	}
	parsed, err := ParsePattern(body)
	if err != nil {
		return err
	}

	resolve := func(alias, col string) (int, event.AttributeType, bool) {
		pos, ok := parsed.AliasPosition[alias]
		if !ok {
			return 0, event.TypeNull, false
		}
		var stream string
		for _, s := range parsed.Steps {
			if s.Alias == alias && s.Position == pos {
				stream = s.Stream
				break
			}
		}
		def, ok := rt.Catalog.Lookup(stream)
		if !ok {
			return 0, event.TypeNull, false
		}
		idx := def.AttributeIndex(col)
		if idx < 0 {
			return 0, event.TypeNull, false
		}
		return idx, def.Attrs[idx].Type, true
	}

	items, err := ParsePatternSelectList(tail, parsed.AliasPosition, resolve)
	if err != nil {
		return err
	}

	outputAttrs := make([]event.Attribute, len(items))
	for i, it := range items {
		outputAttrs[i] = event.Attribute{Name: it.OutputName, Type: it.Expr.ReturnType()}
	}

	return rt.BuildPattern(&LogicalPattern{
		Target: target,
		Parsed: parsed,
		Select: items,
		Output: outputAttrs,
	})
}

func (rt *Runtime) compileSelectStatement(target, selectText string) error {
	cleaned, winSpec, _ := extractWindowClause(selectText)

	stmt, err := sqlparser.Parse(cleaned)
	if err != nil {
		return errs.Wrap(errs.ValidationFailed, "malformed SELECT statement", err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return errs.New(errs.ValidationFailed, "expected a SELECT statement")
	}
	if len(sel.From) != 1 {
		return errs.New(errs.ValidationFailed, "expected exactly one FROM clause")
	}

	switch from := sel.From[0].(type) {
	case *sqlparser.AliasedTableExpr:
		return rt.compilePlainSelect(target, sel, from, winSpec, rt.BuildSelect)
	case *sqlparser.JoinTableExpr:
		return rt.compileJoinSelect(target, sel, from, winSpec)
	default:
		return errs.New(errs.ValidationFailed, "unsupported FROM clause shape")
	}
}

func tableName(e sqlparser.TableExpr) (string, error) {
	aliased, ok := e.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", errs.New(errs.ValidationFailed, "unsupported table reference shape")
	}
	simple, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", errs.New(errs.ValidationFailed, "unsupported table reference shape")
	}
	return simple.Name.String(), nil
}

// singleRelationResolver resolves every unqualified (or self-qualified)
// column against one relation's BeforeWindow section.
func singleRelationResolver(def *RelationDefinition) ColumnResolver {
	return func(qualifier, name string) (executor.Section, int, event.AttributeType, bool) {
		if qualifier != "" && !strings.EqualFold(qualifier, def.Name) {
			return 0, 0, event.TypeNull, false
		}
		idx := def.AttributeIndex(name)
		if idx < 0 {
			return 0, 0, event.TypeNull, false
		}
		return executor.SectionBeforeWindow, idx, def.Attrs[idx].Type, true
	}
}

func (rt *Runtime) compilePlainSelect(target string, sel *sqlparser.Select, from *sqlparser.AliasedTableExpr, winSpec *WindowSpec, wire func(*LogicalSelect) error) error {
	srcName, err := tableName(from)
	if err != nil {
		return err
	}
	def, ok := rt.Catalog.Lookup(srcName)
	if !ok {
		return errs.New(errs.ValidationFailed, "query references undeclared relation: "+srcName)
	}

	tr := &Translator{Registry: rt.Registry, Resolve: singleRelationResolver(def)}
	q := &LogicalSelect{Target: target, Source: srcName, Window: winSpec}

	if sel.Where != nil {
		w, err := tr.Expr(sel.Where.Expr)
		if err != nil {
			return err
		}
		q.Where = w
	}

	hasAgg := false
	for _, se := range sel.SelectExprs {
		if aliased, ok := se.(*sqlparser.AliasedExpr); ok && containsAggregate(aliased.Expr) {
			hasAgg = true
		}
	}
	if hasAgg || len(sel.GroupBy) > 0 {
		tr.Aggregates = &q.Aggregates
		for _, g := range sel.GroupBy {
			ge, err := tr.Expr(g)
			if err != nil {
				return err
			}
			q.GroupBy = append(q.GroupBy, ge)
		}
	}
	q.BatchEmit = winSpec != nil && strings.HasSuffix(strings.ToLower(winSpec.Type), "batch")

	names := make([]string, 0, len(sel.SelectExprs))
	for i, se := range sel.SelectExprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return errs.New(errs.ValidationFailed, "unsupported SELECT list item (only 'expr [AS name]' and named aggregates are supported)")
		}
		ex, err := tr.Expr(aliased.Expr)
		if err != nil {
			return err
		}
		q.Select = append(q.Select, ex)
		fallback := "col" + strconv.Itoa(i)
		names = append(names, selectExprName(aliased, fallback))
	}

	if sel.Having != nil {
		htr := &Translator{Registry: rt.Registry, Resolve: outputColumnResolver(q, names)}
		h, err := htr.Expr(sel.Having.Expr)
		if err != nil {
			return err
		}
		q.Having = h
	}

	q.OutputAttr = make([]event.Attribute, len(q.Select))
	for i, ex := range q.Select {
		attrName := "col"
		if i < len(names) {
			attrName = names[i]
		}
		q.OutputAttr[i] = event.Attribute{Name: attrName, Type: ex.ReturnType()}
	}

	return wire(q)
}

// outputColumnResolver lets a HAVING clause reference the same SELECT-list
// names the query's output row carries (spec §4.2: "HAVING evaluates
// against the post-aggregation row, not the source schema").
func outputColumnResolver(q *LogicalSelect, names []string) ColumnResolver {
	return func(qualifier, name string) (executor.Section, int, event.AttributeType, bool) {
		for i, n := range names {
			if strings.EqualFold(n, name) {
				return executor.SectionOutput, i, q.Select[i].ReturnType(), true
			}
		}
		return 0, 0, event.TypeNull, false
	}
}

func (rt *Runtime) compileJoinSelect(target string, sel *sqlparser.Select, from *sqlparser.JoinTableExpr, winSpec *WindowSpec) error {
	leftName, err := tableName(from.LeftExpr)
	if err != nil {
		return err
	}
	rightName, err := tableName(from.RightExpr)
	if err != nil {
		return err
	}
	leftDef, ok := rt.Catalog.Lookup(leftName)
	if !ok {
		return errs.New(errs.ValidationFailed, "query references undeclared relation: "+leftName)
	}
	rightDef, ok := rt.Catalog.Lookup(rightName)
	if !ok {
		return errs.New(errs.ValidationFailed, "query references undeclared relation: "+rightName)
	}

	outer := strings.Contains(strings.ToLower(from.Join), "left")

	resolve := func(qualifier, name string) (executor.Section, int, event.AttributeType, bool) {
		if qualifier == "" || strings.EqualFold(qualifier, leftName) {
			if idx := leftDef.AttributeIndex(name); idx >= 0 {
				return executor.Section(0), idx, leftDef.Attrs[idx].Type, true
			}
		}
		if qualifier == "" || strings.EqualFold(qualifier, rightName) {
			if idx := rightDef.AttributeIndex(name); idx >= 0 {
				return executor.Section(1), idx, rightDef.Attrs[idx].Type, true
			}
		}
		return 0, 0, event.TypeNull, false
	}
	tr := &Translator{Registry: rt.Registry, Resolve: resolve}

	var on executor.Executor
	if from.On != nil {
		on, err = tr.Expr(from.On)
		if err != nil {
			return err
		}
	}

	selResolve := func(qualifier, name string) (executor.Section, int, event.AttributeType, bool) {
		if qualifier == "" || strings.EqualFold(qualifier, leftName) {
			if idx := leftDef.AttributeIndex(name); idx >= 0 {
				return executor.SectionBeforeWindow, idx, leftDef.Attrs[idx].Type, true
			}
		}
		if qualifier == "" || strings.EqualFold(qualifier, rightName) {
			if idx := rightDef.AttributeIndex(name); idx >= 0 {
				return executor.SectionBeforeWindow, len(leftDef.Attrs) + idx, rightDef.Attrs[idx].Type, true
			}
		}
		return 0, 0, event.TypeNull, false
	}
	selTr := &Translator{Registry: rt.Registry, Resolve: selResolve}

	q := &LogicalSelect{Target: target, Source: leftName, Window: winSpec}
	if sel.Where != nil {
		w, err := selTr.Expr(sel.Where.Expr)
		if err != nil {
			return err
		}
		q.Where = w
	}
	names := make([]string, 0, len(sel.SelectExprs))
	for i, se := range sel.SelectExprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return errs.New(errs.ValidationFailed, "unsupported SELECT list item in join query")
		}
		ex, err := selTr.Expr(aliased.Expr)
		if err != nil {
			return err
		}
		q.Select = append(q.Select, ex)
		names = append(names, selectExprName(aliased, "col"+strconv.Itoa(i)))
	}
	q.OutputAttr = make([]event.Attribute, len(q.Select))
	for i, ex := range q.Select {
		q.OutputAttr[i] = event.Attribute{Name: names[i], Type: ex.ReturnType()}
	}

	join := &LogicalJoin{
		RightSource: rightName,
		On:          on,
		Outer:       outer,
		LeftArity:   len(leftDef.Attrs),
		RightArity:  len(rightDef.Attrs),
	}

	if rightDef.Kind == KindTable {
		join.IsTable = true
		join.BuildCondition = buildTableJoinCondition(from.On, leftDef, rightDef)
	} else {
		if winSpec == nil {
			return errs.New(errs.ValidationFailed, "stream-stream JOIN requires a WINDOW(...) clause on both sides")
		}
		join.RightWindow = winSpec // both sides share the query's single WINDOW(...) clause in this simplified grammar
	}
	q.Join = join

	return rt.BuildSelect(q)
}

// buildTableJoinCondition compiles a stream-table ON clause of the shape
// `stream.col = table.col [AND ...]` into a closure that derives the
// lookup condition from an arriving stream row (spec §4.2.2,
// §4.5 "index lookup is attempted first").
func buildTableJoinCondition(on sqlparser.Expr, streamDef, tableDef *RelationDefinition) func([]event.AttributeValue) table.Condition {
	type pair struct{ streamIdx, tableIdx int }
	var pairs []pair

	var walk func(e sqlparser.Expr)
	walk = func(e sqlparser.Expr) {
		switch n := e.(type) {
		case *sqlparser.AndExpr:
			walk(n.Left)
			walk(n.Right)
		case *sqlparser.ComparisonExpr:
			if n.Operator != sqlparser.EqualStr {
				return
			}
			lc, lok := n.Left.(*sqlparser.ColName)
			rc, rok := n.Right.(*sqlparser.ColName)
			if !lok || !rok {
				return
			}
			si := streamDef.AttributeIndex(lc.Name.String())
			ti := tableDef.AttributeIndex(rc.Name.String())
			if si >= 0 && ti >= 0 {
				pairs = append(pairs, pair{si, ti})
				return
			}
			si = streamDef.AttributeIndex(rc.Name.String())
			ti = tableDef.AttributeIndex(lc.Name.String())
			if si >= 0 && ti >= 0 {
				pairs = append(pairs, pair{si, ti})
			}
		}
	}
	if on != nil {
		walk(on)
	}

	return func(streamRow []event.AttributeValue) table.Condition {
		values := make(map[int]event.AttributeValue, len(pairs))
		for _, p := range pairs {
			if p.streamIdx < len(streamRow) {
				values[p.tableIdx] = streamRow[p.streamIdx]
			}
		}
		return table.EqualityCondition{Values: values}
	}
}

