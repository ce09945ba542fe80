// Package junction implements the stream junction (spec §4.4, C5): the
// only shared mutable hub per named stream. It fans an Event in from a
// source (or an upstream INSERT INTO) out to every subscribed Processor,
// either inline on the publisher's thread (sync, the default) or through a
// bounded worker-owned channel (async).
//
// Grounded on the teacher's RequestRouter (system/events/router.go): both
// are a named registration point that accepts work from a producer and
// fans it out to registered handlers, with an optional bounded queue plus
// worker goroutine(s) standing between producer and consumer. RequestRouter
// routes one request to exactly one handler by ServiceType; a junction
// broadcasts one event to every subscriber in order, which is the
// fan-out/ordering contract this package generalizes to.
package junction

import (
	"fmt"
	"sync"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/pkg/logger"
	"github.com/eventflux-io/engine/pkg/metrics"
)

// OverflowPolicy governs what an async junction does when its bounded
// channel is full (spec §4.4).
type OverflowPolicy int

const (
	Block OverflowPolicy = iota
	DropOldest
	DropNewest
)

// OnErrorAction is the fault action a junction takes when a subscriber's
// Process panics (spec §4.4).
type OnErrorAction int

const (
	LogOnly OnErrorAction = iota
	DivertToFaultStream
	Stop
)

// Subscriber is the minimal contract a junction fans events out to. The
// processor package's Processor interface satisfies this.
type Subscriber interface {
	Process(chunk *event.StreamEvent)
}

// Config configures one junction instance (the WITH-clause `async.*`
// properties, spec §6).
type Config struct {
	StreamName string
	Async      bool
	BufferSize int
	Workers    int
	Overflow   OverflowPolicy
	OnError    OnErrorAction
}

// FaultHandler receives events diverted by OnErrorAction = DivertToFaultStream.
// The query builder wires this to the lazily-created fault stream's input
// handler (spec §4.4 "Fault streams are created lazily").
type FaultHandler func(original *event.Event, cause error)

// Junction is the fan-in/fan-out hub for one named stream. Sync mode
// (default) invokes every subscriber inline, in subscription order, on the
// publisher's goroutine — deterministic FIFO per publisher (spec §5). Async
// mode owns one bounded channel and a pool of worker goroutines that drain
// it in enqueue order; cross-producer ordering is then unspecified.
type Junction struct {
	cfg  Config
	log  *logger.Logger
	meta *event.MetaStreamEvent

	mu          sync.RWMutex
	subscribers []Subscriber
	fault       FaultHandler

	queue  chan *event.Event
	stopCh chan struct{}
	doneCh chan struct{}

	runMu   sync.Mutex
	running bool
}

// New creates a Junction bound to a stream's event schema.
func New(cfg Config, meta *event.MetaStreamEvent) *Junction {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Junction{
		cfg:  cfg,
		log:  logger.NewDefault("junction-" + cfg.StreamName),
		meta: meta,
	}
}

// Subscribe registers a processor chain's entry point as a subscriber, in
// the order subscriptions are made — sync delivery preserves this order.
// The subscriber list is copy-on-write: Subscribe rebuilds the backing
// slice so Publish never observes a torn read (spec §5 "read-mostly and
// copy-on-write on reconfiguration").
func (j *Junction) Subscribe(s Subscriber) {
	j.mu.Lock()
	defer j.mu.Unlock()
	next := make([]Subscriber, len(j.subscribers)+1)
	copy(next, j.subscribers)
	next[len(next)-1] = s
	j.subscribers = next
}

// SetFaultHandler wires the lazily-created fault stream's input handler.
func (j *Junction) SetFaultHandler(h FaultHandler) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fault = h
}

// Start spins up the async worker pool. A no-op for sync junctions.
func (j *Junction) Start() error {
	j.runMu.Lock()
	defer j.runMu.Unlock()
	if !j.cfg.Async || j.running {
		return nil
	}
	j.queue = make(chan *event.Event, j.cfg.BufferSize)
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.running = true

	var wg sync.WaitGroup
	for i := 0; i < j.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.worker()
		}()
	}
	go func() {
		wg.Wait()
		close(j.doneCh)
	}()
	j.log.Info("junction started")
	return nil
}

// Stop drains and halts the async worker pool, blocking until workers exit.
func (j *Junction) Stop() {
	j.runMu.Lock()
	if !j.running {
		j.runMu.Unlock()
		return
	}
	j.running = false
	close(j.stopCh)
	j.runMu.Unlock()

	<-j.doneCh
	j.log.Info("junction stopped")
}

// Publish pushes one Event into the junction. In sync mode it delivers
// inline to every subscriber, in order, and returns only after all have
// run. In async mode it enqueues per the configured OverflowPolicy and
// returns immediately.
func (j *Junction) Publish(e *event.Event) error {
	metrics.EventsIn.WithLabelValues(j.cfg.StreamName).Inc()

	if !j.cfg.Async {
		j.deliver(e)
		return nil
	}

	j.runMu.Lock()
	running := j.running
	j.runMu.Unlock()
	if !running {
		return errs.New(errs.Runtime, fmt.Sprintf("junction %s is not running", j.cfg.StreamName))
	}

	switch j.cfg.Overflow {
	case DropNewest:
		select {
		case j.queue <- e:
		default:
		}
	case DropOldest:
		for {
			select {
			case j.queue <- e:
				return nil
			default:
			}
			select {
			case <-j.queue:
			default:
			}
		}
	default: // Block
		select {
		case j.queue <- e:
		case <-j.stopCh:
			return errs.New(errs.Runtime, "junction stopped while publishing")
		}
	}
	metrics.JunctionQueueDepth.WithLabelValues(j.cfg.StreamName).Set(float64(len(j.queue)))
	return nil
}

func (j *Junction) worker() {
	for {
		select {
		case <-j.stopCh:
			for {
				select {
				case e := <-j.queue:
					j.deliver(e)
				default:
					return
				}
			}
		case e := <-j.queue:
			metrics.JunctionQueueDepth.WithLabelValues(j.cfg.StreamName).Set(float64(len(j.queue)))
			j.deliver(e)
		}
	}
}

// deliver fans e out to every subscriber. Each subscriber sees its own
// clone of the converted StreamEvent so mutation by one subscriber's chain
// can never alias another's (spec invariant I1).
func (j *Junction) deliver(e *event.Event) {
	j.mu.RLock()
	subs := j.subscribers
	j.mu.RUnlock()

	factory := event.NewStreamEventFactory(j.meta)
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					j.handleFault(e, fmt.Errorf("subscriber panic: %v", r))
				}
			}()
			se := factory.NewFromEvent(e)
			s.Process(se)
		}()
	}
	metrics.EventsOut.WithLabelValues(j.cfg.StreamName).Add(float64(len(subs)))
}

func (j *Junction) handleFault(e *event.Event, cause error) {
	switch j.cfg.OnError {
	case DivertToFaultStream:
		j.mu.RLock()
		fault := j.fault
		j.mu.RUnlock()
		if fault != nil {
			fault(e, cause)
			return
		}
		j.log.WithError(cause).Error("subscriber error, no fault stream configured")
	case Stop:
		j.log.WithError(cause).Error("subscriber error, stopping junction")
		go j.Stop()
	default:
		j.log.WithError(cause).Warn("subscriber error")
	}
}

// Name returns the stream name this junction serves.
func (j *Junction) Name() string {
	return j.cfg.StreamName
}
