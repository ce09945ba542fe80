package pattern

import (
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
	"github.com/eventflux-io/engine/pkg/metrics"
)

// PreStateProcessor is one pattern step's matching half (spec §4.3): it
// receives every event arriving on its bound stream, extends each in-flight
// candidate's chain at Position, and evaluates Condition. A match is handed
// to PostStateProcessor to decide whether the step is satisfied (and should
// forward to the next step, or emit a final match) and/or whether it should
// keep accumulating (count quantifiers).
type PreStateProcessor struct {
	Position   int
	StreamName string
	Condition  executor.Executor // nil means "any event on this stream matches"
	Quantifier Quantifier
	Sched      *scheduler.Scheduler

	// QueryID/StepLabel tag this step's metrics (spec §B domain stack:
	// eventflux_pattern_candidates, eventflux_pattern_matches_total),
	// assigned by Builder.Build from ForQuery and each step's alias.
	QueryID   string
	StepLabel string

	holder *stateHolder
	post   *PostStateProcessor

	// root-only fields: position 0 seeds brand-new candidates rather than
	// only extending existing ones.
	root          bool
	chain         *Chain
	positionCount int
	outputArity   int
	within        time.Duration
}

func newPreStateProcessor(position int, streamName string, cond executor.Executor, q Quantifier, sched *scheduler.Scheduler) *PreStateProcessor {
	return &PreStateProcessor{Position: position, StreamName: streamName, Condition: cond, Quantifier: q, Sched: sched, holder: newStateHolder()}
}

// Clone returns a fresh PreStateProcessor with empty state and the same
// position, condition, quantifier and chain wiring.
func (p *PreStateProcessor) Clone() *PreStateProcessor {
	np := newPreStateProcessor(p.Position, p.StreamName, p.Condition, p.Quantifier, p.Sched)
	np.root, np.chain, np.positionCount, np.outputArity, np.within = p.root, p.chain, p.positionCount, p.outputArity, p.within
	np.QueryID, np.StepLabel = p.QueryID, p.StepLabel
	np.post = p.post
	return np
}

func (p *PreStateProcessor) now() int64 {
	if p.Sched == nil {
		return 0
	}
	return p.Sched.Now().UnixMilli()
}

// Seed injects a candidate already carrying this step's extended chain
// directly into pending_list — used by the prior step's PostStateProcessor
// to hand off a completed-but-continuing match.
func (p *PreStateProcessor) Seed(c *candidate) {
	if p.Sched != nil {
		p.holder.ExpireDue(p.now())
	}
	p.holder.AddPending(c)
}

func (p *PreStateProcessor) matches(se *event.StreamEvent, trial *event.StateEvent) bool {
	if p.Condition == nil {
		return true
	}
	v, ok := p.Condition.Execute(executor.StateContext{State: trial})
	return ok && !v.IsNull() && v.AsBool()
}

// Consume is invoked once per event arriving on StreamName. Every in-flight
// candidate is extended and re-tested; at the root step a brand-new
// candidate is also tried, so every event can both advance earlier partial
// matches and start a new one. A candidate that matches leaves pending_list;
// only its extended copy can come back (via resolve, while the step may
// still accumulate).
func (p *PreStateProcessor) Consume(se *event.StreamEvent) {
	now := p.now()
	p.holder.ExpireDue(now)

	pendingCount := len(p.holder.pending)
	candidates := p.holder.pending
	if p.root && p.canStartNew() {
		candidates = append(candidates, p.freshSeed(now))
	}

	var kept []*candidate
	for i, c := range candidates {
		trial := c.state.Clone()
		trial.AddToChain(p.Position, se)
		if !p.matches(se, trial) {
			if i < pendingCount {
				kept = append(kept, c)
			}
			continue
		}
		p.post.resolve(p, &candidate{state: trial, deadlineSet: c.deadlineSet, deadlineMs: c.deadlineMs})
	}
	p.holder.pending = kept
	p.holder.EndTick()
	metrics.PatternCandidates.WithLabelValues(p.QueryID, p.StepLabel).Set(float64(len(p.holder.pending)))
}

// canStartNew reports whether the root step may seed another fresh
// candidate right now — always true for an "every" chain, true only until
// the first full match for a single-shot chain.
func (p *PreStateProcessor) canStartNew() bool {
	if p.chain == nil {
		return true
	}
	return p.chain.Every || !p.chain.completed.Load()
}

func (p *PreStateProcessor) freshSeed(now int64) *candidate {
	c := &candidate{state: event.NewStateEvent(p.positionCount, p.outputArity)}
	if p.within > 0 {
		c.deadlineSet = true
		c.deadlineMs = now + p.within.Milliseconds()
	}
	return c
}

// seeder is implemented by both PreStateProcessor and notStep, so a
// PostStateProcessor can forward a completed step to whichever kind of step
// follows it.
type seeder interface {
	seedCandidate(c *candidate)
}

func (p *PreStateProcessor) seedCandidate(c *candidate) { p.Seed(c) }

// seederFunc adapts a plain function to the seeder interface, used to wire
// a trailing run of NOT steps straight into the chain's terminal onMatch
// callback when no matching step follows them.
type seederFunc func(c *candidate)

func (f seederFunc) seedCandidate(c *candidate) { f(c) }

// PostStateProcessor decides, for one extended candidate, whether the step
// it belongs to is satisfied (count reaches Quantifier.Min — forward a copy
// to Next, or emit via OnMatch if this is the terminal step) and whether the
// step should keep accumulating more events (count below Quantifier.Max).
type PostStateProcessor struct {
	Next    seeder
	OnMatch func(*event.StateEvent)
}

func (post *PostStateProcessor) resolve(pre *PreStateProcessor, c *candidate) {
	length := c.state.ChainLength(pre.Position)
	if length >= pre.Quantifier.Min {
		if post.Next != nil {
			post.Next.seedCandidate(&candidate{state: c.state.Clone(), deadlineSet: c.deadlineSet, deadlineMs: c.deadlineMs})
		} else if post.OnMatch != nil {
			metrics.PatternMatches.WithLabelValues(pre.QueryID).Inc()
			post.OnMatch(c.state)
			if pre.chain != nil && !pre.chain.Every {
				pre.chain.completed.Store(true)
			}
		}
	}
	if pre.Quantifier.Unbounded() || length < pre.Quantifier.Max {
		pre.holder.AddFresh(c)
	}
}
