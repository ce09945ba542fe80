package processor

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
)

// Selector evaluates the SELECT list against each event's before-window
// section, producing an OutputData sized to the selector's arity (spec §4.2,
// invariant I2: "StreamEvent.output_data.len() equals the declared output
// arity of the producing operator").
type Selector struct {
	BaseProcessor
	Exprs []executor.Executor
}

func NewSelector(exprs []executor.Executor) *Selector { return &Selector{Exprs: exprs} }

func (s *Selector) Process(chunk *event.StreamEvent) {
	var head, tail *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		out := make([]event.AttributeValue, len(s.Exprs))
		hardErr := false
		for i, e := range s.Exprs {
			v, ok := e.Execute(executor.StreamContext{Event: cur})
			if !ok {
				hardErr = true
				break
			}
			out[i] = v
		}
		if !hardErr {
			cur.OutputData = out
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
	s.Forward(head)
}

func (s *Selector) IsStateful() bool               { return false }
func (s *Selector) ProcessingMode() ProcessingMode { return ModeDefault }
func (s *Selector) Clone() Processor {
	exprs := make([]executor.Executor, len(s.Exprs))
	for i, e := range s.Exprs {
		exprs[i] = e.Clone()
	}
	return &Selector{Exprs: exprs}
}
