package processor

import (
	"testing"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/table"
)

func meta(attrs ...event.Attribute) *event.MetaStreamEvent {
	return event.NewMetaStreamEvent("S", attrs)
}

func intEvent(vals ...int32) *event.StreamEvent {
	attrs := make([]event.Attribute, len(vals))
	for i := range vals {
		attrs[i] = event.Attribute{Name: "c", Type: event.TypeInt}
	}
	se := event.NewStreamEvent(meta(attrs...))
	for i, v := range vals {
		se.BeforeWindowData[i] = event.Int(v)
		se.OnAfterWindowData[i] = event.Int(v)
	}
	se.Type = event.Current
	return se
}

func TestFilterRejectsNullAndFalse(t *testing.T) {
	f := NewFilter(executor.NewCompare(executor.Gt, executor.NewVariable(executor.SectionBeforeWindow, 0, event.TypeInt), executor.NewConst(event.Int(2))))
	var out []*event.StreamEvent
	f.SetNext(collectingProcessor(&out))

	f.Process(intEvent(1))
	f.Process(intEvent(5))

	if len(out) != 1 || out[0].BeforeWindowData[0].AsInt() != 5 {
		t.Fatalf("expected only the event >2 to pass, got %v", out)
	}
}

func TestSelectorProjectsOutputArity(t *testing.T) {
	s := NewSelector([]executor.Executor{executor.NewVariable(executor.SectionBeforeWindow, 0, event.TypeInt)})
	var out []*event.StreamEvent
	s.SetNext(collectingProcessor(&out))

	s.Process(intEvent(7, 9))
	if len(out) != 1 || len(out[0].OutputData) != 1 || out[0].OutputData[0].AsInt() != 7 {
		t.Fatalf("expected projected output of arity 1 with value 7, got %v", out)
	}
}

// TestGroupByAggregatorBatchSum is scenario S2: SUM over a lengthBatch(3)
// window should emit 6, then 15.
func TestGroupByAggregatorBatchSum(t *testing.T) {
	agg := NewGroupByAggregator(nil, []AggregateSpec{
		{Name: "s", Expr: executor.NewVariable(executor.SectionBeforeWindow, 0, event.TypeInt), Acc: NewSum(event.TypeLong)},
	}, ModeBatch)
	var sums []int64
	agg.SetNext(callbackFn(func(chunk *event.StreamEvent) {
		for cur := chunk; cur != nil; cur = cur.Next {
			sums = append(sums, cur.OutputData[0].AsLong())
		}
	}))

	batch1 := event.FromSlice([]*event.StreamEvent{intEvent(1), intEvent(2), intEvent(3)})
	agg.Process(batch1)

	e4, e5, e6 := intEvent(4), intEvent(5), intEvent(6)
	exp1, exp2, exp3 := intEvent(1), intEvent(2), intEvent(3)
	exp1.Type, exp2.Type, exp3.Type = event.Expired, event.Expired, event.Expired
	batch2 := event.FromSlice([]*event.StreamEvent{e4, e5, e6, exp1, exp2, exp3})
	agg.Process(batch2)

	if len(sums) != 2 || sums[0] != 6 || sums[1] != 15 {
		t.Fatalf("expected batch sums [6 15], got %v", sums)
	}
}

func TestStreamJoinInner(t *testing.T) {
	on := executor.NewCompare(executor.Eq,
		executor.NewIndexedVariable(0, executor.LastIndex, 0, event.TypeInt),
		executor.NewIndexedVariable(1, executor.LastIndex, 0, event.TypeInt))
	j := NewStreamJoinProcessor(InnerJoin, on, 1, 1)
	var out []*event.StreamEvent
	j.SetNext(collectingProcessor(&out))

	j.ProcessRight(intEvent(1))
	j.ProcessLeft(intEvent(1))

	if len(out) != 1 {
		t.Fatalf("expected one matched pair, got %d", len(out))
	}
}

// TestTableJoinInner is scenario S4: stream-table enrichment, INNER join
// drops unmatched ids.
func TestTableJoinInner(t *testing.T) {
	tbl := table.NewInMemoryTable()
	tbl.Insert(table.Row{event.Int(1), event.Str("a")})
	tbl.Insert(table.Row{event.Int(2), event.Str("b")})

	j := NewTableJoinProcessor(tbl, false, 1, 2, func(row []event.AttributeValue) table.Condition {
		return table.EqualityCondition{Values: map[int]event.AttributeValue{0: row[0]}}
	})
	var out []*event.StreamEvent
	j.SetNext(collectingProcessor(&out))

	chunk := event.FromSlice([]*event.StreamEvent{intEvent(1), intEvent(3), intEvent(2)})
	j.Process(chunk)

	if len(out) != 2 {
		t.Fatalf("expected 2 matches (id=3 dropped under INNER), got %d", len(out))
	}
}

// --- helpers ---

func collectingProcessor(out *[]*event.StreamEvent) *CallbackProcessor {
	return NewCallbackProcessor(func(chunk *event.StreamEvent) {
		for cur := chunk; cur != nil; cur = cur.Next {
			*out = append(*out, cur)
		}
	})
}

func callbackFn(fn EventChunkCallback) *CallbackProcessor { return NewCallbackProcessor(fn) }
