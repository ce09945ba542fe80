package window

import (
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// sessionState tracks one open session keyed by the session-key attribute.
type sessionState struct {
	events []*event.StreamEvent
}

// SessionWindow groups events into per-key sessions that close after a gap
// with no new arrivals (spec §4.2.1: "key->open-session map; per-key gap
// timer"). On close, the whole session is emitted as CURRENT, and — because
// a session is tumbling, not sliding — no EXPIRED pairing is needed for the
// session's own events; the window instead emits the closing events
// directly when the gap timer fires.
type SessionWindow struct {
	base
	keyIndex int
	gap      time.Duration
	sched    *scheduler.Scheduler
	sessions map[string]*sessionState
	gen      map[string]int // generation counter to ignore stale timers
}

func NewSessionWindow(keyIndex int, gap time.Duration, sched *scheduler.Scheduler) *SessionWindow {
	return &SessionWindow{
		keyIndex: keyIndex,
		gap:      gap,
		sched:    sched,
		sessions: make(map[string]*sessionState),
		gen:      make(map[string]int),
	}
}

func (w *SessionWindow) Process(chunk *event.StreamEvent) {
	w.mu.Lock()
	type armed struct {
		key string
		gen int
	}
	var toArm []armed
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil

		key := w.keyOf(cur)
		st, ok := w.sessions[key]
		if !ok {
			st = &sessionState{}
			w.sessions[key] = st
		}
		st.events = append(st.events, cur)
		w.gen[key]++
		toArm = append(toArm, armed{key: key, gen: w.gen[key]})
		cur = next
	}
	w.mu.Unlock()

	for _, a := range toArm {
		key, gen := a.key, a.gen
		w.sched.AfterFunc(w.gap, func() { w.closeIfCurrent(key, gen) })
	}
}

func (w *SessionWindow) keyOf(se *event.StreamEvent) string {
	if w.keyIndex < 0 || w.keyIndex >= len(se.BeforeWindowData) {
		return ""
	}
	return se.BeforeWindowData[w.keyIndex].String()
}

// closeIfCurrent fires a session close only if no newer event has re-armed
// the gap timer for this key since this timer was scheduled.
func (w *SessionWindow) closeIfCurrent(key string, gen int) {
	w.mu.Lock()
	if w.gen[key] != gen {
		w.mu.Unlock()
		return
	}
	st, ok := w.sessions[key]
	delete(w.sessions, key)
	delete(w.gen, key)
	w.mu.Unlock()
	if !ok {
		return
	}

	var out *event.StreamEvent
	for _, e := range st.events {
		out = appendChunk(out, e)
	}
	w.emit("session", out)
}

func (w *SessionWindow) ProcessingMode() processor.ProcessingMode { return processor.ModeBatch }
func (w *SessionWindow) Clone() processor.Processor {
	nw := NewSessionWindow(w.keyIndex, w.gap, w.sched)
	nw.SetQueryID(w.queryID)
	return nw
}
