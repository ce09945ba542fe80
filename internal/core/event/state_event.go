package event

// StateEvent carries multiple StreamEvent chains in parallel "positions",
// one per pattern step alias (e1, e2, ...), plus its own output projection.
// A position's chain is the linked list of StreamEvents that matched that
// step — needed for count quantifiers, where e1{3,5} produces a chain of
// length 3..5 (spec §3).
type StateEvent struct {
	// StreamEvents holds one chain head per pattern position. A position not
	// yet matched has a nil head (spec invariant I3).
	StreamEvents []*StreamEvent
	OutputData   []AttributeValue
	Timestamp    int64
}

// NewStateEvent allocates a StateEvent with positionCount empty positions and
// an output projection sized to outputArity.
func NewStateEvent(positionCount, outputArity int) *StateEvent {
	return &StateEvent{
		StreamEvents: make([]*StreamEvent, positionCount),
		OutputData:   make([]AttributeValue, outputArity),
	}
}

// GetEventChain returns the chain head at position pos, or nil if that
// position hasn't matched anything yet.
func (s *StateEvent) GetEventChain(pos int) *StreamEvent {
	if pos < 0 || pos >= len(s.StreamEvents) {
		return nil
	}
	return s.StreamEvents[pos]
}

// SetEventChain installs (or appends to, via AddToChain) the chain at pos.
func (s *StateEvent) SetEventChain(pos int, chain *StreamEvent) {
	if pos < 0 || pos >= len(s.StreamEvents) {
		return
	}
	s.StreamEvents[pos] = chain
}

// AddToChain appends e to the end of the chain at pos (used by count
// quantifiers to grow a step's chain one matching event at a time).
func (s *StateEvent) AddToChain(pos int, e *StreamEvent) {
	if pos < 0 || pos >= len(s.StreamEvents) {
		return
	}
	s.StreamEvents[pos] = Append(s.StreamEvents[pos], e)
}

// ChainLength returns the number of events matched at pos so far.
func (s *StateEvent) ChainLength(pos int) int {
	return Len(s.GetEventChain(pos))
}

// EventAt returns the i-th event in position pos's chain (0-based), or nil if
// out of bounds — IndexedVariable executors rely on this returning nil
// rather than panicking so optional patterns degrade gracefully (spec §4.1).
func (s *StateEvent) EventAt(pos, i int) *StreamEvent {
	if i < 0 {
		return nil
	}
	cur := s.GetEventChain(pos)
	for n := 0; cur != nil && n < i; n++ {
		cur = cur.Next
	}
	return cur
}

// LastEventAt returns the last (most recently appended) event in position
// pos's chain, or nil if the chain is empty. Backs the `last` keyword index.
func (s *StateEvent) LastEventAt(pos int) *StreamEvent {
	cur := s.GetEventChain(pos)
	if cur == nil {
		return nil
	}
	for cur.Next != nil {
		cur = cur.Next
	}
	return cur
}

// Clone deep-copies a StateEvent: every position's chain is cloned
// independently so concurrent branches (AND/OR combinators, "every"
// re-arming) never mutate a shared chain (spec §4.3, §9 "Event chain
// ownership").
func (s *StateEvent) Clone() *StateEvent {
	c := &StateEvent{
		StreamEvents: make([]*StreamEvent, len(s.StreamEvents)),
		OutputData:   cloneSlice(s.OutputData),
		Timestamp:    s.Timestamp,
	}
	for i, chain := range s.StreamEvents {
		c.StreamEvents[i] = cloneChain(chain)
	}
	return c
}

func cloneChain(head *StreamEvent) *StreamEvent {
	if head == nil {
		return nil
	}
	var newHead, tail *StreamEvent
	for cur := head; cur != nil; cur = cur.Next {
		n := cur.Clone()
		if newHead == nil {
			newHead = n
			tail = n
		} else {
			tail.Next = n
			tail = n
		}
	}
	return newHead
}
