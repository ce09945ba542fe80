package pattern

import (
	"testing"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

func loginMeta() *event.MetaStreamEvent {
	return event.NewMetaStreamEvent("Login", []event.Attribute{
		{Name: "user", Type: event.TypeString},
		{Name: "action", Type: event.TypeString},
	})
}

func loginEvent(user, action string) *event.StreamEvent {
	se := event.NewStreamEvent(loginMeta())
	se.BeforeWindowData[0] = event.Str(user)
	se.BeforeWindowData[1] = event.Str(action)
	se.Type = event.Current
	return se
}

func userEq(val string) executor.Executor {
	return executor.NewCompare(executor.Eq,
		executor.NewVariable(executor.SectionBeforeWindow, 0, event.TypeString),
		executor.NewConst(event.Str(val)))
}

func actionEq(val string) executor.Executor {
	return executor.NewCompare(executor.Eq,
		executor.NewVariable(executor.SectionBeforeWindow, 1, event.TypeString),
		executor.NewConst(event.Str(val)))
}

// actionEqAt is actionEq for a step at chain position pos: a step's
// condition reads the event at its own position (section == position).
func actionEqAt(pos int, val string) executor.Executor {
	return executor.NewCompare(executor.Eq,
		executor.NewVariable(executor.Section(pos), 1, event.TypeString),
		executor.NewConst(event.Str(val)))
}

// TestSimpleSequenceMatch validates e1 -> e2 ordering: the chain matches
// once a Login "start" is followed by a later Login "end".
func TestSimpleSequenceMatch(t *testing.T) {
	sched := scheduler.New(scheduler.SystemClock{})
	var matches int
	chain := NewBuilder(sched).
		Step("e1", "Login", actionEq("start"), ExactlyOne).
		Step("e2", "Login", actionEqAt(1, "end"), ExactlyOne).
		Build(func(se *event.StateEvent) { matches++ })

	chain.Feed("Login", loginEvent("alice", "start"))
	chain.Feed("Login", loginEvent("alice", "end"))

	if matches != 1 {
		t.Fatalf("expected exactly one match, got %d", matches)
	}
}

// TestCountQuantifierAccumulates is scenario S3: Login{2,3} -> Alert fires
// once two-or-three consecutive lock events for the same user are followed
// by an alert step, yielding exactly one match.
func TestCountQuantifierAccumulates(t *testing.T) {
	sched := scheduler.New(scheduler.SystemClock{})
	var got []string
	chain := NewBuilder(sched).
		Step("e1", "Login", actionEq("lock"), Quantifier{Min: 2, Max: 3}).
		Step("e2", "Alert", nil, ExactlyOne).
		Build(func(se *event.StateEvent) {
			first := se.EventAt(0, 0)
			got = append(got, first.BeforeWindowData[0].AsString()+","+first.BeforeWindowData[1].AsString())
		})

	chain.Feed("Login", loginEvent("alice", "lock"))
	chain.Feed("Login", loginEvent("alice", "lock"))
	chain.Feed("Alert", loginEvent("alice", "alert"))

	if len(got) != 1 || got[0] != "alice,lock" {
		t.Fatalf("expected one match (alice,lock), got %v", got)
	}
}

// TestEveryRearmsAfterCompletion is property P2: "every e1 -> e2" detects
// the pattern repeatedly, not just once.
func TestEveryRearmsAfterCompletion(t *testing.T) {
	sched := scheduler.New(scheduler.SystemClock{})
	var matches int
	chain := NewBuilder(sched).Every().
		Step("e1", "Login", actionEq("start"), ExactlyOne).
		Step("e2", "Login", actionEqAt(1, "end"), ExactlyOne).
		Build(func(se *event.StateEvent) { matches++ })

	chain.Feed("Login", loginEvent("alice", "start"))
	chain.Feed("Login", loginEvent("alice", "end"))
	chain.Feed("Login", loginEvent("bob", "start"))
	chain.Feed("Login", loginEvent("bob", "end"))

	if matches != 2 {
		t.Fatalf("expected 2 matches with every re-arming, got %d", matches)
	}
}

// TestSingleShotStopsAfterFirstMatch is the converse of P2: without Every,
// the chain only ever completes once.
func TestSingleShotStopsAfterFirstMatch(t *testing.T) {
	sched := scheduler.New(scheduler.SystemClock{})
	var matches int
	chain := NewBuilder(sched).
		Step("e1", "Login", actionEq("start"), ExactlyOne).
		Step("e2", "Login", actionEqAt(1, "end"), ExactlyOne).
		Build(func(se *event.StateEvent) { matches++ })

	chain.Feed("Login", loginEvent("alice", "start"))
	chain.Feed("Login", loginEvent("alice", "end"))
	chain.Feed("Login", loginEvent("bob", "start"))
	chain.Feed("Login", loginEvent("bob", "end"))

	if matches != 1 {
		t.Fatalf("expected exactly 1 match without every, got %d", matches)
	}
}

// TestNotOperatorSucceedsOnAbsence validates the NOT operator: e1 -> not e2
// for D -> e3 only advances once D elapses without e2 arriving. The NOT
// timer fires asynchronously off the scheduler goroutine (same as the
// window timers), so the test waits on a channel rather than asserting
// immediately after Advance.
func TestNotOperatorSucceedsOnAbsence(t *testing.T) {
	clock := scheduler.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)
	matched := make(chan struct{}, 1)
	chain := NewBuilder(sched).
		Step("e1", "Login", actionEq("start"), ExactlyOne).
		Not("Login", actionEq("cancel"), 5*time.Second).
		Step("e2", "Login", actionEqAt(1, "end"), ExactlyOne).
		Build(func(se *event.StateEvent) { matched <- struct{}{} })

	chain.Feed("Login", loginEvent("alice", "start"))
	clock.Advance(6 * time.Second)
	// The NOT timer fires on its own goroutine; give it a moment to seed the
	// following step before e3 arrives.
	time.Sleep(20 * time.Millisecond)
	chain.Feed("Login", loginEvent("alice", "end"))

	select {
	case <-matched:
	case <-time.After(time.Second):
		t.Fatal("expected the chain to complete once e3 arrives after the NOT window cleared")
	}
}

// TestNotOperatorBlocksOnViolation is the converse: a cancel event inside
// the NOT window drops the candidate, so the chain never completes.
func TestNotOperatorBlocksOnViolation(t *testing.T) {
	clock := scheduler.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)
	matched := make(chan struct{}, 1)
	chain := NewBuilder(sched).
		Step("e1", "Login", actionEq("start"), ExactlyOne).
		Not("Login", actionEq("cancel"), 5*time.Second).
		Step("e2", "Login", actionEqAt(1, "end"), ExactlyOne).
		Build(func(se *event.StateEvent) { matched <- struct{}{} })

	chain.Feed("Login", loginEvent("alice", "start"))
	chain.Feed("Login", loginEvent("alice", "cancel"))
	clock.Advance(6 * time.Second)
	chain.Feed("Login", loginEvent("alice", "end"))

	select {
	case <-matched:
		t.Fatal("expected NOT violation to drop the candidate, but the chain matched")
	case <-time.After(100 * time.Millisecond):
	}
}
