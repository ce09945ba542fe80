package event

// StreamEventFactory builds StreamEvents for one stream's MetaStreamEvent,
// the way original_source/src/core/event pairs a factory with each meta
// schema so operators never have to thread the schema through by hand.
type StreamEventFactory struct {
	meta *MetaStreamEvent
}

// NewStreamEventFactory binds a factory to a schema.
func NewStreamEventFactory(meta *MetaStreamEvent) *StreamEventFactory {
	return &StreamEventFactory{meta: meta}
}

// New allocates a zero-valued StreamEvent sized per the bound schema.
func (f *StreamEventFactory) New() *StreamEvent {
	return NewStreamEvent(f.meta)
}

// NewFromEvent converts an external Event into a CURRENT StreamEvent per the
// bound schema.
func (f *StreamEventFactory) NewFromEvent(e *Event) *StreamEvent {
	return FromEvent(f.meta, e)
}

// StateEventFactory builds StateEvents with a fixed position count, the way
// a compiled pattern query knows its step count at build time.
type StateEventFactory struct {
	positionCount int
	outputArity   int
}

// NewStateEventFactory binds a factory to a pattern's position/output shape.
func NewStateEventFactory(positionCount, outputArity int) *StateEventFactory {
	return &StateEventFactory{positionCount: positionCount, outputArity: outputArity}
}

// New allocates a StateEvent with all positions empty.
func (f *StateEventFactory) New() *StateEvent {
	return NewStateEvent(f.positionCount, f.outputArity)
}
