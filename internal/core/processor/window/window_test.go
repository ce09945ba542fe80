package window

import (
	"testing"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

func meta() *event.MetaStreamEvent {
	return event.NewMetaStreamEvent("In", []event.Attribute{{Name: "v", Type: event.TypeInt}})
}

func streamEventOf(v int32) *event.StreamEvent {
	se := event.NewStreamEvent(meta())
	se.BeforeWindowData[0] = event.Int(v)
	se.OnAfterWindowData[0] = event.Int(v)
	se.Type = event.Current
	return se
}

// TestLengthWindowPassThrough is property P1 / scenario S1: length(2) over
// 1,2,3,4 passes every CURRENT event straight through.
func TestLengthWindowPassThrough(t *testing.T) {
	w := NewLengthWindow(2)
	var received []int32
	var expiredCount int
	w.SetNext(callbackCounter(&received, &expiredCount))

	for _, v := range []int32{1, 2, 3, 4} {
		w.Process(streamEventOf(v))
	}

	if len(received) != 4 {
		t.Fatalf("expected 4 CURRENT events, got %d: %v", len(received), received)
	}
	for i, v := range []int32{1, 2, 3, 4} {
		if received[i] != v {
			t.Fatalf("expected %v at %d, got %v", v, i, received[i])
		}
	}
	// 1 and 2 both expire once 3 and 4 arrive and the ring overflows past 2.
	if expiredCount != 2 {
		t.Fatalf("expected 2 expirations once the ring overflows, got %d", expiredCount)
	}
}

func TestLengthBatchWindowEmitsEveryNth(t *testing.T) {
	w := NewLengthBatchWindow(3)
	var seen []*event.StreamEvent
	w.SetNext(collector(&seen))

	for _, v := range []int32{1, 2} {
		w.Process(streamEventOf(v))
	}
	if len(seen) != 0 {
		t.Fatal("batch of 3 should not emit until the third event arrives")
	}

	w.Process(streamEventOf(3))
	if len(seen) != 3 {
		t.Fatalf("expected the first full batch (3 CURRENT events), got %d", len(seen))
	}

	for _, v := range []int32{4, 5, 6} {
		w.Process(streamEventOf(v))
	}
	// second batch: 3 new CURRENT + 3 EXPIRED of the first batch
	if len(seen) != 3+6 {
		t.Fatalf("expected 3 + 6 = 9 total events after second batch, got %d", len(seen))
	}
}

func TestTimeWindowExpiresOnMockClockAdvance(t *testing.T) {
	clock := scheduler.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)
	w := NewTimeWindow(5*time.Second, sched)

	expired := make(chan struct{}, 10)
	w.SetNext(expireSignal(expired))

	w.Process(streamEventOf(1))
	clock.Advance(2 * time.Second)
	select {
	case <-expired:
		t.Fatal("should not expire before the window duration elapses")
	default:
	}

	clock.Advance(4 * time.Second)
	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("expected expiry once the clock passes the window duration")
	}
}

func TestSortWindowEvictsWorst(t *testing.T) {
	w := NewSortWindow(2, 0, Descending)
	var seen []*event.StreamEvent
	w.SetNext(collector(&seen))

	w.Process(streamEventOf(5))
	w.Process(streamEventOf(1))
	w.Process(streamEventOf(9))

	expiredVals := map[int32]bool{}
	for _, se := range seen {
		if se.Type == event.Expired {
			expiredVals[se.BeforeWindowData[0].AsInt()] = true
		}
	}
	if !expiredVals[1] {
		t.Fatalf("expected the smallest value (worst under descending sort) to be evicted, got %v", expiredVals)
	}
}

// --- test helpers -----------------------------------------------------

func callbackCounter(received *[]int32, expiredCount *int) *processor.CallbackProcessor {
	return processor.NewCallbackProcessor(func(chunk *event.StreamEvent) {
		for cur := chunk; cur != nil; cur = cur.Next {
			if cur.Type == event.Current {
				*received = append(*received, cur.BeforeWindowData[0].AsInt())
			} else if cur.Type == event.Expired {
				*expiredCount++
			}
		}
	})
}

func collector(seen *[]*event.StreamEvent) *processor.CallbackProcessor {
	return processor.NewCallbackProcessor(func(chunk *event.StreamEvent) {
		for cur := chunk; cur != nil; cur = cur.Next {
			*seen = append(*seen, cur)
		}
	})
}

func expireSignal(ch chan struct{}) *processor.CallbackProcessor {
	return processor.NewCallbackProcessor(func(chunk *event.StreamEvent) {
		for cur := chunk; cur != nil; cur = cur.Next {
			if cur.Type == event.Expired {
				ch <- struct{}{}
			}
		}
	})
}
