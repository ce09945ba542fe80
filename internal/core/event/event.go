package event

import "sync/atomic"

var idCounter int64

// NextID returns the next value from a process-wide atomic counter. Event
// ids are not serialized for correctness (spec §3) — they exist only so log
// lines and debug dumps can refer to a specific event.
func NextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// Event is the boundary record a Source hands to an InputHandler, and the
// record a CallbackProcessor hands to a SinkMapper.
type Event struct {
	ID        int64
	Timestamp int64 // ms epoch, or externally assigned
	Data      []AttributeValue
	IsExpired bool
}

// New creates an Event with a freshly assigned id.
func New(timestamp int64, data []AttributeValue) *Event {
	return &Event{ID: NextID(), Timestamp: timestamp, Data: data}
}

// Clone deep-copies the event's attribute vector so fan-out never lets two
// subscribers alias the same backing slice (spec invariant I1).
func (e *Event) Clone() *Event {
	data := make([]AttributeValue, len(e.Data))
	for i, v := range e.Data {
		data[i] = v.Clone()
	}
	return &Event{ID: e.ID, Timestamp: e.Timestamp, Data: data, IsExpired: e.IsExpired}
}
