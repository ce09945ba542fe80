package processor

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
)

// Filter drops events whose WHERE-clause executor doesn't evaluate to true.
// A hard type error (ok=false) or a SQL-null result both reject the event —
// spec §4.1: "filter treats Some(Null) as reject, not as error" — so both
// cases take the same branch here, not two different ones.
type Filter struct {
	BaseProcessor
	Cond executor.Executor
}

func NewFilter(cond executor.Executor) *Filter { return &Filter{Cond: cond} }

func (f *Filter) Process(chunk *event.StreamEvent) {
	var head, tail *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil
		v, ok := f.Cond.Execute(executor.StreamContext{Event: cur})
		if ok && !v.IsNull() && v.AsBool() {
			if head == nil {
				head = cur
				tail = cur
			} else {
				tail.Next = cur
				tail = cur
			}
		}
		cur = next
	}
	f.Forward(head)
}

func (f *Filter) IsStateful() bool               { return false }
func (f *Filter) ProcessingMode() ProcessingMode { return ModeDefault }
func (f *Filter) Clone() Processor {
	return &Filter{Cond: f.Cond.Clone()}
}
