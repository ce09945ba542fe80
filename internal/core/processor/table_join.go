package processor

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/table"
	"github.com/eventflux-io/engine/pkg/metrics"
)

// TableJoinProcessor implements stream-table lookup join: each stream event
// is pushed against a compiled condition on the table via Table.Find, and
// the join emits one combined event with the single row Find returns; when
// several rows match, the others are not joined (spec §4.2.2). Under
// LEFT_OUTER with no match, emits one padded event.
type TableJoinProcessor struct {
	BaseProcessor
	Table       table.Table
	Outer       bool // LEFT_OUTER if true, INNER otherwise
	StreamArity int
	TableArity  int
	// BuildCondition derives the lookup condition from a stream event's
	// BeforeWindowData — the compiled ON-clause, e.g. "Ev.id = U.id".
	BuildCondition func(streamRow []event.AttributeValue) table.Condition
	queryID        string
}

func NewTableJoinProcessor(t table.Table, outer bool, streamArity, tableArity int, buildCond func([]event.AttributeValue) table.Condition) *TableJoinProcessor {
	return &TableJoinProcessor{Table: t, Outer: outer, StreamArity: streamArity, TableArity: tableArity, BuildCondition: buildCond}
}

// SetQueryID tags this join with the "query" label its
// eventflux_join_emissions_total metric reports under (spec §B domain
// stack).
func (j *TableJoinProcessor) SetQueryID(id string) { j.queryID = id }

func (j *TableJoinProcessor) joinTypeLabel() string {
	if j.Outer {
		return "left_outer"
	}
	return "inner"
}

func (j *TableJoinProcessor) Process(chunk *event.StreamEvent) {
	var out *event.StreamEvent
	emitted := 0
	for cur := chunk; cur != nil; cur = cur.Next {
		cond := j.BuildCondition(cur.BeforeWindowData)
		row, found, err := j.Table.Find(cond)
		if err != nil {
			continue
		}
		if !found {
			if j.Outer {
				out = appendChunk(out, j.combine(cur, nil))
				emitted++
			}
			continue
		}
		out = appendChunk(out, j.combine(cur, row))
		emitted++
	}
	if emitted > 0 {
		metrics.JoinEmissions.WithLabelValues(j.queryID, j.joinTypeLabel()).Add(float64(emitted))
	}
	j.Forward(out)
}

func (j *TableJoinProcessor) combine(se *event.StreamEvent, row table.Row) *event.StreamEvent {
	out := &event.StreamEvent{Type: event.Current}
	out.BeforeWindowData = make([]event.AttributeValue, j.StreamArity+j.TableArity)
	copy(out.BeforeWindowData, se.BeforeWindowData)
	for i := 0; i < j.TableArity; i++ {
		if row != nil && i < len(row) {
			out.BeforeWindowData[j.StreamArity+i] = row[i]
		} else {
			out.BeforeWindowData[j.StreamArity+i] = event.Null
		}
	}
	return out
}

func (j *TableJoinProcessor) IsStateful() bool               { return false }
func (j *TableJoinProcessor) ProcessingMode() ProcessingMode { return ModeDefault }
func (j *TableJoinProcessor) Clone() Processor {
	nj := NewTableJoinProcessor(j.Table, j.Outer, j.StreamArity, j.TableArity, j.BuildCondition)
	nj.SetQueryID(j.queryID)
	return nj
}
