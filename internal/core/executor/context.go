// Package executor implements the tree of pure-function expression nodes
// (spec §4.1, C2): constants, variables, arithmetic, compare, logical,
// function calls, CASE, CAST and the pattern-only IndexedVariable.
//
// Grounded on the teacher's `infrastructure/errors` exhaustive-error-taxonomy
// idiom for the CASE/CAST "fail with a named kind, never panic" discipline,
// and on original_source/src/core/executor/*.rs for per-node semantics.
package executor

import "github.com/eventflux-io/engine/internal/core/event"

// Section selects which of a StreamEvent's three parallel attribute arrays a
// Variable executor reads from. For a StateContext (pattern queries), the
// section value instead names the pattern position whose chain is read —
// see StateContext.Attribute.
type Section int

const (
	SectionBeforeWindow Section = 0
	SectionOnAfterWindow Section = 1
	SectionOutput Section = 2
)

// Context is what an Executor.Execute runs against. It is deliberately thin:
// a plain stream query wraps a single StreamEvent (StreamContext); a pattern
// condition wraps a StateEvent plus the event currently being matched
// (StateContext).
type Context interface {
	// Attribute reads [section, index] the way spec §4.1's Variable node
	// addresses a value. ok=false means the address was invalid (hard
	// error, not SQL-null).
	Attribute(section Section, index int) (event.AttributeValue, bool)

	// Chain returns the chain head for a pattern position, or nil outside
	// pattern contexts / for positions that haven't matched yet.
	Chain(position int) *event.StreamEvent
}

// StreamContext adapts a single StreamEvent for ordinary (non-pattern)
// stream processing.
type StreamContext struct {
	Event *event.StreamEvent
}

func (c StreamContext) Attribute(section Section, index int) (event.AttributeValue, bool) {
	if c.Event == nil {
		return event.Null, false
	}
	var arr []event.AttributeValue
	switch section {
	case SectionBeforeWindow:
		arr = c.Event.BeforeWindowData
	case SectionOnAfterWindow:
		arr = c.Event.OnAfterWindowData
	case SectionOutput:
		arr = c.Event.OutputData
	default:
		return event.Null, false
	}
	if index < 0 || index >= len(arr) {
		return event.Null, false
	}
	return arr[index], true
}

func (c StreamContext) Chain(position int) *event.StreamEvent { return nil }

// StateContext adapts a StateEvent for pattern/sequence condition
// evaluation. A Variable addressed with section==position reads the *last*
// matched event's BeforeWindowData at that position — the natural binding
// for "the event currently occupying this alias". IndexedVariable bypasses
// this and walks Chain(position) directly to reach an arbitrary index.
type StateContext struct {
	State *event.StateEvent
}

func (c StateContext) Attribute(section Section, index int) (event.AttributeValue, bool) {
	if c.State == nil {
		return event.Null, false
	}
	last := c.State.LastEventAt(int(section))
	if last == nil {
		return event.Null, false
	}
	if index < 0 || index >= len(last.BeforeWindowData) {
		return event.Null, false
	}
	return last.BeforeWindowData[index], true
}

func (c StateContext) Chain(position int) *event.StreamEvent {
	if c.State == nil {
		return nil
	}
	return c.State.GetEventChain(position)
}
