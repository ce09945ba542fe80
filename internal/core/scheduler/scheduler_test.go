package scheduler

import (
	"testing"
	"time"
)

func TestMockClockAdvanceFiresDueTimers(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	s := New(clock)

	fired := make(chan struct{}, 1)
	s.AfterFunc(5*time.Second, func() { fired <- struct{}{} })

	clock.Advance(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("timer fired before its deadline")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(3 * time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire once its deadline passed")
	}
}

func TestMockClockOrdersMultipleWaitersByDeadline(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	s := New(clock)

	done := make(chan int, 2)
	s.AfterFunc(10*time.Second, func() { done <- 2 })
	s.AfterFunc(5*time.Second, func() { done <- 1 })

	clock.Advance(10 * time.Second)
	first := <-done
	second := <-done

	if first != 1 || second != 2 {
		t.Fatalf("expected earliest deadline to fire first, got %d then %d", first, second)
	}
}
