package query

import (
	"strings"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/junction"
	"github.com/eventflux-io/engine/internal/core/pattern"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
	"github.com/eventflux-io/engine/internal/core/table"
)

// Runtime owns every relation's junction/table instance for one compiled
// SQL text, and builds the physical graph a statement's logical shape
// describes (spec §4.6 step 4: "allocate a processor or processor pair and
// wire it into the owning stream junction's subscriber list").
//
// Grounded on the teacher's job-pipeline wiring in packages/com.r3e.services
// oracle (parse -> resolve registry entries -> instantiate the running
// pipeline), generalized from one job definition to an arbitrary DAG of
// stream/table relations sharing one SqlCatalog.
type Runtime struct {
	Catalog   *SqlCatalog
	Registry  *executor.FunctionRegistry
	Scheduler *scheduler.Scheduler

	junctions map[string]*junction.Junction
	tables    map[string]table.Table
	Deps      *DependencyGraph
}

func NewRuntime(catalog *SqlCatalog, registry *executor.FunctionRegistry, sched *scheduler.Scheduler) *Runtime {
	return &Runtime{
		Catalog:   catalog,
		Registry:  registry,
		Scheduler: sched,
		junctions: make(map[string]*junction.Junction),
		tables:    make(map[string]table.Table),
		Deps:      NewDependencyGraph(),
	}
}

// JunctionFor returns (creating if necessary) the junction serving name,
// sized from its catalog schema and async-configured per its WITH(...)
// properties (spec §4.4).
func (r *Runtime) JunctionFor(name string) (*junction.Junction, error) {
	key := strings.ToLower(name)
	if j, ok := r.junctions[key]; ok {
		return j, nil
	}
	def, ok := r.Catalog.Lookup(name)
	if !ok {
		return nil, errs.New(errs.ValidationFailed, "reference to undeclared stream: "+name)
	}
	cfg := junction.Config{
		StreamName: def.Name,
		Async:      def.With.Bool("async.enabled", false),
		BufferSize: int(def.With.Uint("async.buffer.size", 0)),
		Workers:    int(def.With.Uint("async.workers", 0)),
	}
	j := junction.New(cfg, def.Meta())
	r.junctions[key] = j
	return j, nil
}

// TableFor returns (creating if necessary) the table instance backing
// name (spec §4.5). Only the in-memory implementation is built here — a
// WITH(type='rdbms'/'redis') relation is wired by the application layer
// against the concrete store, not by this package.
func (r *Runtime) TableFor(name string) (table.Table, *RelationDefinition, error) {
	key := strings.ToLower(name)
	if t, ok := r.tables[key]; ok {
		def, _ := r.Catalog.Lookup(name)
		return t, def, nil
	}
	def, ok := r.Catalog.Lookup(name)
	if !ok || def.Kind != KindTable {
		return nil, nil, errs.New(errs.ValidationFailed, "reference to undeclared table: "+name)
	}
	t := table.NewInMemoryTable()
	r.tables[key] = t
	return t, def, nil
}

// LogicalSelect is the parsed shape of one `[INSERT INTO target] SELECT ...
// FROM source [WINDOW(...)] [JOIN ...] [WHERE ...] [GROUP BY ...] [HAVING
// ...]` statement, already preprocessed by extractWindowClause/
// splitInsertInto and translated via Translator, ready for physical wiring.
type LogicalSelect struct {
	Target     string
	Source     string
	Window     *WindowSpec
	Where      executor.Executor
	GroupBy    []executor.Executor
	Having     executor.Executor
	Select     []executor.Executor
	OutputAttr []event.Attribute
	Aggregates []processor.AggregateSpec
	BatchEmit  bool // true when the query's only window is a *Batch window

	// Join, when non-nil, describes the second relation this query reads.
	Join *LogicalJoin
}

// LogicalJoin describes a two-relation join (spec §4.2.2): either a second
// stream (each side independently windowed) or a table (stream-side window,
// looked up per arriving event).
type LogicalJoin struct {
	RightSource string
	RightWindow *WindowSpec
	IsTable     bool
	Outer       bool
	On          executor.Executor // built over a 2-position StateEvent, position 0 = left/stream, 1 = right
	LeftArity   int
	RightArity  int
	// BuildCondition is only used for a stream-table join.
	BuildCondition func([]event.AttributeValue) table.Condition
}

// eventSink is anything a query's output stage can publish a row to: a
// stream junction (the common case) or a table's InputHandler (spec §4.5,
// SPEC_FULL.md C.5 — "INSERT INTO target SELECT ..." where target resolves
// to a table, not a stream). Both satisfy this with the exact same method
// set, so the output wiring needs no type switch past targetSink.
type eventSink interface {
	Publish(e *event.Event) error
}

// targetSink resolves an INSERT INTO target name to the right eventSink:
// JunctionFor when the catalog declares it a stream, a table.InputHandler
// when it declares it a table.
func (r *Runtime) targetSink(name string) (eventSink, error) {
	def, ok := r.Catalog.Lookup(name)
	if !ok {
		return nil, errs.New(errs.ValidationFailed, "reference to undeclared relation: "+name)
	}
	if def.Kind == KindTable {
		t, _, err := r.TableFor(name)
		if err != nil {
			return nil, err
		}
		return table.NewInputHandler(t), nil
	}
	return r.JunctionFor(name)
}

// BuildSelect wires a non-pattern query: Filter -> Window ->
// [GroupByAggregator -> Filter(HAVING)] -> Selector -> CallbackProcessor,
// subscribed to the source junction and publishing to the target sink. A
// JOIN's target is always a stream (a join result has no natural single-key
// table row), so it resolves via JunctionFor directly rather than
// targetSink.
func (r *Runtime) BuildSelect(q *LogicalSelect) error {
	srcJ, err := r.JunctionFor(q.Source)
	if err != nil {
		return err
	}
	r.Deps.AddEdge(q.Target, q.Source)

	if q.Join != nil {
		dstJ, err := r.JunctionFor(q.Target)
		if err != nil {
			return err
		}
		return r.wireJoin(q, srcJ, dstJ)
	}

	dst, err := r.targetSink(q.Target)
	if err != nil {
		return err
	}
	head, err := r.buildSelectChain(q, dst)
	if err != nil {
		return err
	}
	srcJ.Subscribe(head)
	return nil
}

// buildSelectChain assembles the Filter -> Window -> [GroupByAggregator ->
// Filter(HAVING)] -> Selector -> CallbackProcessor stages for a non-join
// query, without subscribing them to anything. Shared by BuildSelect (which
// subscribes the chain directly to the source junction) and
// BuildPartitionedSelect (which subscribes a PartitionRouter wrapping a
// clone of this chain per partition key instead).
func (r *Runtime) buildSelectChain(q *LogicalSelect, dst eventSink) (processor.Processor, error) {
	var stages []processor.Processor
	if q.Where != nil {
		stages = append(stages, processor.NewFilter(q.Where))
	}
	if q.Window != nil {
		win, err := BuildWindow(*q.Window, r.Scheduler, windowAttrResolver(q.Source, r.Catalog), q.Target)
		if err != nil {
			return nil, err
		}
		stages = append(stages, win)
	}
	if len(q.Aggregates) > 0 || len(q.GroupBy) > 0 {
		mode := processor.ModeDefault
		if q.BatchEmit {
			mode = processor.ModeBatch
		}
		stages = append(stages, processor.NewGroupByAggregator(q.GroupBy, q.Aggregates, mode))
	}
	if q.Having != nil {
		stages = append(stages, processor.NewFilter(q.Having))
	}
	stages = append(stages, processor.NewSelector(q.Select))
	stages = append(stages, processor.NewCallbackProcessor(r.publishTo(dst, q.OutputAttr)))

	return processor.Chain(stages...), nil
}

// BuildPartitionedSelect wires a query that lives inside a `CREATE
// PARTITION BY key { ... }` block (spec §6): the same chain
// buildSelectChain would build for a top-level query, except a
// PartitionRouter sits in front so each distinct value of the source
// row's keyIndex attribute gets its own independent clone of that chain.
func (r *Runtime) BuildPartitionedSelect(q *LogicalSelect, keyIndex int) error {
	if q.Join != nil {
		return errs.New(errs.ValidationFailed, "JOIN is not supported inside a CREATE PARTITION BY query")
	}
	srcJ, err := r.JunctionFor(q.Source)
	if err != nil {
		return err
	}
	dst, err := r.targetSink(q.Target)
	if err != nil {
		return err
	}
	r.Deps.AddEdge(q.Target, q.Source)

	template, err := r.buildSelectChain(q, dst)
	if err != nil {
		return err
	}
	srcJ.Subscribe(processor.NewPartitionRouter(keyIndex, template))
	return nil
}

// wireJoin builds a stream-stream or stream-table join and its surrounding
// window/selector stages, subscribing each side to its own source junction.
func (r *Runtime) wireJoin(q *LogicalSelect, leftJ *junction.Junction, dstJ *junction.Junction) error {
	j := q.Join
	tail := func() processor.Processor {
		return processor.Chain(
			processor.NewSelector(q.Select),
			processor.NewCallbackProcessor(r.publishTo(dstJ, q.OutputAttr)),
		)
	}

	if j.IsTable {
		t, _, err := r.TableFor(j.RightSource)
		if err != nil {
			return err
		}
		tj := processor.NewTableJoinProcessor(t, j.Outer, j.LeftArity, j.RightArity, j.BuildCondition)
		tj.SetQueryID(q.Target)
		tj.SetNext(tail())

		var leftStages []processor.Processor
		if q.Where != nil {
			leftStages = append(leftStages, processor.NewFilter(q.Where))
		}
		if q.Window != nil {
			win, err := BuildWindow(*q.Window, r.Scheduler, windowAttrResolver(q.Source, r.Catalog), q.Target)
			if err != nil {
				return err
			}
			leftStages = append(leftStages, win)
		}
		leftStages = append(leftStages, tj)
		leftJ.Subscribe(processor.Chain(leftStages...))
		return nil
	}

	r.Deps.AddEdge(q.Target, j.RightSource)
	rightJ, err := r.JunctionFor(j.RightSource)
	if err != nil {
		return err
	}

	joinType := processor.InnerJoin
	if j.Outer {
		joinType = processor.LeftOuterJoin
	}
	sj := processor.NewStreamJoinProcessor(joinType, j.On, j.LeftArity, j.RightArity)
	sj.SetQueryID(q.Target)
	sj.SetNext(tail())

	leftWin, err := BuildWindow(*q.Window, r.Scheduler, windowAttrResolver(q.Source, r.Catalog), q.Target)
	if err != nil {
		return err
	}
	leftAdapter := processor.NewCallbackProcessor(func(chunk *event.StreamEvent) { sj.ProcessLeft(chunk) })
	leftWin.SetNext(leftAdapter)
	leftJ.Subscribe(leftWin)

	rightWin, err := BuildWindow(*j.RightWindow, r.Scheduler, windowAttrResolver(j.RightSource, r.Catalog), q.Target)
	if err != nil {
		return err
	}
	rightAdapter := processor.NewCallbackProcessor(func(chunk *event.StreamEvent) { sj.ProcessRight(chunk) })
	rightWin.SetNext(rightAdapter)
	rightJ.Subscribe(rightWin)
	return nil
}

// publishTo converts a finished chunk's OutputData rows into Events and
// publishes each to dst, in chunk order.
func (r *Runtime) publishTo(dst eventSink, attrs []event.Attribute) processor.EventChunkCallback {
	return func(chunk *event.StreamEvent) {
		for cur := chunk; cur != nil; cur = cur.Next {
			if cur.Type == event.Expired {
				continue
			}
			_ = dst.Publish(event.New(cur.Timestamp, cur.OutputData))
		}
	}
}

func windowAttrResolver(streamName string, catalog *SqlCatalog) func(string) (int, bool) {
	return func(name string) (int, bool) {
		def, ok := catalog.Lookup(streamName)
		if !ok {
			return 0, false
		}
		idx := def.AttributeIndex(name)
		if idx < 0 {
			return 0, false
		}
		return idx, true
	}
}

// LogicalPattern is the parsed shape of a `FROM PATTERN(...) SELECT ...`
// query, ready for physical wiring (spec §4.3, §4.6 step 4).
type LogicalPattern struct {
	Target  string
	Parsed  *ParsedPattern
	Select  []PatternSelectItem
	Output  []event.Attribute
}

// BuildPattern wires a pattern.Chain, subscribing it to every distinct
// stream its steps reference and publishing each completed match to the
// target junction (spec §4.3).
func (r *Runtime) BuildPattern(lp *LogicalPattern) error {
	dstJ, err := r.JunctionFor(lp.Target)
	if err != nil {
		return err
	}

	builder := pattern.NewBuilder(r.Scheduler).ForQuery(lp.Target)
	if lp.Parsed.Every {
		builder = builder.Every()
	}
	if lp.Parsed.Within > 0 {
		builder = builder.Within(lp.Parsed.Within)
	}

	streams := map[string]bool{}
	for _, step := range lp.Parsed.Steps {
		streams[step.Stream] = true
		if step.IsNot {
			builder = builder.Not(step.Stream, nil, step.NotDur)
			continue
		}
		builder = builder.Step(step.Alias, step.Stream, nil, step.Quant)
	}

	exprs := make([]executor.Executor, len(lp.Select))
	for i, item := range lp.Select {
		exprs[i] = item.Expr
	}

	chain := builder.Build(func(se *event.StateEvent) {
		out := make([]event.AttributeValue, len(exprs))
		for i, e := range exprs {
			v, ok := e.Execute(executor.StateContext{State: se})
			if !ok {
				return
			}
			out[i] = v
		}
		_ = dstJ.Publish(event.New(0, out))
	})

	for stream := range streams {
		r.Deps.AddEdge(lp.Target, stream)
		srcJ, err := r.JunctionFor(stream)
		if err != nil {
			return err
		}
		streamName := stream
		srcJ.Subscribe(processor.NewCallbackProcessor(func(chunk *event.StreamEvent) {
			for cur := chunk; cur != nil; cur = cur.Next {
				chain.Feed(streamName, cur)
			}
		}))
	}
	return nil
}
