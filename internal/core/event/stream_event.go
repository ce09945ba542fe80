package event

// EventType is the CURRENT/EXPIRED/TIMER/RESET tag carried by a StreamEvent.
type EventType int

const (
	Current EventType = iota
	Expired
	Timer
	Reset
)

func (t EventType) String() string {
	switch t {
	case Current:
		return "CURRENT"
	case Expired:
		return "EXPIRED"
	case Timer:
		return "TIMER"
	case Reset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// StreamEvent is the internal event flowing through the processor graph.
// Three parallel attribute arrays separate "what arrived" (before window),
// "what the window currently holds plus what arrived" (on-after-window) and
// "what this operator projects downstream" (output) — spec §3.
//
// next forms a singly-linked chunk; StreamEvent chunks are the unit operators
// consume and produce, making batching a first-class concept (spec §3, §4.2).
type StreamEvent struct {
	BeforeWindowData  []AttributeValue
	OnAfterWindowData []AttributeValue
	OutputData        []AttributeValue
	Timestamp         int64
	Type              EventType
	Next              *StreamEvent
}

// NewStreamEvent allocates a StreamEvent whose arrays are sized from meta.
func NewStreamEvent(meta *MetaStreamEvent) *StreamEvent {
	return &StreamEvent{
		BeforeWindowData:  make([]AttributeValue, len(meta.BeforeWindowAttrs)),
		OnAfterWindowData: make([]AttributeValue, len(meta.OnAfterWindowAttrs)),
		OutputData:        make([]AttributeValue, len(meta.OutputAttrs)),
	}
}

// FromEvent converts an external Event into a CURRENT StreamEvent sized per
// meta, copying the event's data into BeforeWindowData (and OnAfterWindowData,
// which starts identical until a window mutates it).
func FromEvent(meta *MetaStreamEvent, e *Event) *StreamEvent {
	se := NewStreamEvent(meta)
	se.Timestamp = e.Timestamp
	se.Type = Current
	n := len(e.Data)
	if n > len(se.BeforeWindowData) {
		n = len(se.BeforeWindowData)
	}
	for i := 0; i < n; i++ {
		se.BeforeWindowData[i] = e.Data[i]
		se.OnAfterWindowData[i] = e.Data[i]
	}
	return se
}

// Clone deep-copies one StreamEvent node (not its chain) so that publishing
// the same logical event to more than one subscriber never lets them alias
// the same attribute vectors (spec invariant I1).
func (s *StreamEvent) Clone() *StreamEvent {
	return &StreamEvent{
		BeforeWindowData:  cloneSlice(s.BeforeWindowData),
		OnAfterWindowData: cloneSlice(s.OnAfterWindowData),
		OutputData:        cloneSlice(s.OutputData),
		Timestamp:         s.Timestamp,
		Type:              s.Type,
	}
}

// CloneAsType clones this event and stamps it with a new EventType, the
// pattern used throughout window operators to synthesize an EXPIRED copy of
// a previously admitted CURRENT event (spec §4.2.1).
func (s *StreamEvent) CloneAsType(t EventType) *StreamEvent {
	c := s.Clone()
	c.Type = t
	return c
}

func cloneSlice(in []AttributeValue) []AttributeValue {
	out := make([]AttributeValue, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}

// Chunk is a convenience alias emphasizing that a *StreamEvent is usually
// the head of a linked chunk, not a single event.
type Chunk = *StreamEvent

// Append adds other to the end of the chunk rooted at head, returning the
// (possibly new) head.
func Append(head, other *StreamEvent) *StreamEvent {
	if head == nil {
		return other
	}
	if other == nil {
		return head
	}
	cur := head
	for cur.Next != nil {
		cur = cur.Next
	}
	cur.Next = other
	return head
}

// ToSlice flattens a chunk into a slice, in chain order.
func ToSlice(head *StreamEvent) []*StreamEvent {
	var out []*StreamEvent
	for cur := head; cur != nil; cur = cur.Next {
		out = append(out, cur)
	}
	return out
}

// FromSlice links a slice of StreamEvents into a chunk, in slice order.
// Existing Next pointers are overwritten.
func FromSlice(events []*StreamEvent) *StreamEvent {
	var head, tail *StreamEvent
	for _, e := range events {
		e.Next = nil
		if head == nil {
			head = e
			tail = e
		} else {
			tail.Next = e
			tail = e
		}
	}
	return head
}

// Len counts the events in a chunk.
func Len(head *StreamEvent) int {
	n := 0
	for cur := head; cur != nil; cur = cur.Next {
		n++
	}
	return n
}
