// Package scheduler provides the monotonic clock source and delayed-callback
// facility used by time-based windows, the cron window, and pattern
// WITHIN/NOT timers (spec §9: "The engine MUST allow injecting a mock clock
// for deterministic tests — a SchedulerSource is required for reproducible
// replay of S1-S5").
//
// Grounded on the teacher's domain/automation job-scheduling idiom
// (services/automation, backed by github.com/robfig/cron/v3) generalized
// from "fire a cron job" to "fire an arbitrary scheduled callback," plus a
// clock-driven one-shot timer facility for WINDOW/WITHIN/NOT deadlines
// instead of a cron expression.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Clock abstracts "now" and "sleep until" so tests can inject a mock clock
// instead of wall-clock time.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once d has elapsed according to
	// this clock.
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the real wall-clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler drives delayed one-shot callbacks (window expiry deadlines,
// pattern WITHIN/NOT timers) against an injectable Clock, and cron-expression
// callbacks (the cron() window) via robfig/cron.
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	cron    *cron.Cron
	started bool
}

// New builds a scheduler bound to clock. Pass scheduler.SystemClock{} in
// production; tests inject a MockClock (see mock_clock.go) for deterministic
// replay (spec P4/S5).
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock: clock,
		cron:  cron.New(cron.WithSeconds()),
	}
}

// Now returns the scheduler's current notion of time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// AfterFunc schedules fn to run once, approximately d after now, driven by
// the scheduler's clock rather than the wall clock directly — this is what
// lets a MockClock fire it deterministically under test, by calling
// MockClock.Advance.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) {
	ch := s.clock.After(d)
	go func() {
		<-ch
		fn()
	}()
}

// CronFunc registers fn to run on every firing of the standard 6-field cron
// expr (seconds field included, matching robfig/cron.WithSeconds()). Returns
// the entry id so callers can Remove it on query teardown.
func (s *Scheduler) CronFunc(expr string, fn func()) (cron.EntryID, error) {
	return s.cron.AddFunc(expr, fn)
}

// RemoveCron deregisters a previously registered cron callback.
func (s *Scheduler) RemoveCron(id cron.EntryID) { s.cron.Remove(id) }

// Start begins the cron dispatcher goroutine. AfterFunc timers need no
// explicit start — they fire independently as soon as scheduled.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop halts the cron dispatcher. In-flight AfterFunc timers still fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	<-s.cron.Stop().Done()
}
