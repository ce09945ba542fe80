package pattern

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// Chain is a compiled pattern/sequence query: an ordered list of steps
// (each either a PreStateProcessor or a notStep) wired front-to-back, fed by
// dispatching arriving StreamEvents to whichever step is bound to that
// event's stream name (spec §4.3).
//
// Grounded on original_source's StateElement compilation (one
// Pre/PostStateProcessor pair per step) and on the teacher's RequestRouter
// dispatch-by-key idiom (system/events/router.go) generalized from "route by
// request type" to "route by stream name".
type Chain struct {
	Every     bool
	steps     []stepHandler
	completed atomic.Bool
	OnMatch   func(*event.StateEvent)
}

// stepHandler is satisfied by both PreStateProcessor and notStep, so Chain
// can dispatch without knowing which kind of step is bound to a stream.
type stepHandler interface {
	Consume(se *event.StreamEvent)
	streamName() string
}

func (p *PreStateProcessor) streamName() string { return p.StreamName }

// Builder assembles a Chain step by step; steps must be added in pattern
// order (e1, e2, ...).
type Builder struct {
	sched   *scheduler.Scheduler
	every   bool
	within  time.Duration
	queryID string
	specs   []stepSpec
}

type stepSpec struct {
	alias  string
	stream string
	cond   executor.Executor
	quant  Quantifier
	isNot  bool
	notDur time.Duration
}

// NewBuilder starts a pattern chain driven by sched (inject a MockClock in
// tests for deterministic WITHIN/NOT behavior, per spec §9).
func NewBuilder(sched *scheduler.Scheduler) *Builder { return &Builder{sched: sched} }

// Every marks the whole chain as repeating: a fresh root candidate seeds on
// every matching arrival even after a prior full match completed, instead of
// stopping after the first (spec §4.3 "every e1 -> e2").
func (b *Builder) Every() *Builder { b.every = true; return b }

// Within bounds the whole chain: the deadline is stamped when the root step
// seeds a candidate, and candidates past their deadline are dropped rather
// than matched (spec §4.3 WITHIN clause).
func (b *Builder) Within(d time.Duration) *Builder { b.within = d; return b }

// ForQuery tags the chain with the "query" label its
// eventflux_pattern_candidates/eventflux_pattern_matches_total metrics report
// under (spec §B domain stack), typically the statement's INSERT INTO target
// name.
func (b *Builder) ForQuery(id string) *Builder { b.queryID = id; return b }

// Step appends an ordinary matching step e_i bound to stream with condition
// cond (nil matches any event) and count quantifier quant. alias is the
// pattern step's name (e.g. "e1") used as the "step" label on the
// eventflux_pattern_candidates metric; an empty alias falls back to a
// position-derived label.
func (b *Builder) Step(alias, stream string, cond executor.Executor, quant Quantifier) *Builder {
	b.specs = append(b.specs, stepSpec{alias: alias, stream: stream, cond: cond, quant: quant})
	return b
}

// Not appends a "not e_i for dur" step: the chain only advances past this
// step once dur elapses without a matching event arriving on stream (spec
// §4.3 NOT operator).
func (b *Builder) Not(stream string, cond executor.Executor, dur time.Duration) *Builder {
	b.specs = append(b.specs, stepSpec{stream: stream, cond: cond, isNot: true, notDur: dur})
	return b
}

// Build wires the accumulated steps into a Chain, with positionCount and
// outputArity sized to the number of matching (non-NOT) steps, and installs
// onMatch as the terminal callback.
func (b *Builder) Build(onMatch func(*event.StateEvent)) *Chain {
	positionCount := 0
	for _, s := range b.specs {
		if !s.isNot {
			positionCount++
		}
	}

	c := &Chain{Every: b.every, OnMatch: onMatch}
	handlers := make([]stepHandler, len(b.specs))
	pos := 0
	for i, s := range b.specs {
		if s.isNot {
			handlers[i] = newNotStep(s.stream, s.cond, s.notDur, b.sched)
			continue
		}
		pre := newPreStateProcessor(pos, s.stream, s.cond, s.quant, b.sched)
		pre.QueryID = b.queryID
		pre.StepLabel = s.alias
		if pre.StepLabel == "" {
			pre.StepLabel = "e" + strconv.Itoa(pos+1)
		}
		if i == 0 {
			pre.root = true
			pre.chain = c
			pre.positionCount = positionCount
			pre.within = b.within
		}
		handlers[i] = pre
		pos++
	}

	// Wire each step to forward into the next. A run of one or more NOT
	// steps between two matching steps chains back-to-front: the last NOT
	// in the run forwards to the following matching step (or, at the end
	// of the chain, to the terminal onMatch), and each earlier NOT forwards
	// into the one after it — so a candidate must clear every NOT in the
	// run, in order, before it reaches the step beyond them.
	var lastPre *PreStateProcessor
	var pendingNots []*notStep
	wireRun := func(terminal seeder) {
		target := terminal
		for i := len(pendingNots) - 1; i >= 0; i-- {
			n := pendingNots[i]
			t := target
			n.forward = func(c *candidate) { t.seedCandidate(c) }
			target = n
		}
		if lastPre != nil {
			lastPre.post = &PostStateProcessor{Next: target}
		}
		pendingNots = nil
		lastPre = nil
	}
	for _, h := range handlers {
		switch v := h.(type) {
		case *PreStateProcessor:
			if lastPre != nil || len(pendingNots) > 0 {
				wireRun(v)
			}
			lastPre = v
		case *notStep:
			pendingNots = append(pendingNots, v)
		}
	}
	if len(pendingNots) > 0 {
		wireRun(seederFunc(func(c *candidate) { onMatch(c.state) }))
	} else if lastPre != nil {
		lastPre.post = &PostStateProcessor{OnMatch: onMatch}
	}

	c.steps = handlers
	return c
}

// Feed dispatches an arriving event to every step bound to its stream.
func (c *Chain) Feed(streamName string, se *event.StreamEvent) {
	for _, h := range c.steps {
		if h.streamName() == streamName {
			h.Consume(se)
		}
	}
}
