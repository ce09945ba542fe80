package event

// Attribute names one column of a schema.
type Attribute struct {
	Name string
	Type AttributeType
}

// MetaStreamEvent describes the shape of StreamEvents produced for one named
// stream: the sizes of its three parallel attribute arrays. Every operator
// that creates a StreamEvent for this stream sizes its arrays from this
// schema (spec §3, "Arrays are sized at construction from a per-stream
// MetaStreamEvent schema").
type MetaStreamEvent struct {
	StreamName           string
	BeforeWindowAttrs     []Attribute
	OnAfterWindowAttrs    []Attribute
	OutputAttrs           []Attribute
}

// NewMetaStreamEvent builds a meta event where before/on-after/output all
// share the same attribute list, which is the common case for a stream
// definition's own schema (no projection applied yet).
func NewMetaStreamEvent(streamName string, attrs []Attribute) *MetaStreamEvent {
	cp := make([]Attribute, len(attrs))
	copy(cp, attrs)
	return &MetaStreamEvent{
		StreamName:        streamName,
		BeforeWindowAttrs:  cp,
		OnAfterWindowAttrs: cp,
		OutputAttrs:        cp,
	}
}

// AttributeIndex returns the position of name within before_window_data, or
// -1 if absent.
func (m *MetaStreamEvent) AttributeIndex(name string) int {
	for i, a := range m.BeforeWindowAttrs {
		if a.Name == name {
			return i
		}
	}
	return -1
}
