package window

import (
	"bytes"
	"encoding/gob"

	"github.com/eventflux-io/engine/internal/core/event"
)

// wireValue is the gob-encodable mirror of event.AttributeValue, whose
// fields are private (so its cross-type numeric lattice can't be bypassed by
// construction). Every StateHolder implementation in this package converts
// through wireValue rather than gob-encoding AttributeValue directly.
type wireValue struct {
	Type  event.AttributeType
	Int   int32
	Long  int64
	Float float32
	Dbl   float64
	Bool  bool
	Str   string
	Bytes []byte
}

func toWire(v event.AttributeValue) wireValue {
	w := wireValue{Type: v.Type()}
	switch v.Type() {
	case event.TypeInt:
		w.Int = v.AsInt()
	case event.TypeLong:
		w.Long = v.AsLong()
	case event.TypeFloat:
		w.Float = v.AsFloat()
	case event.TypeDouble:
		w.Dbl = v.AsDouble()
	case event.TypeBool:
		w.Bool = v.AsBool()
	case event.TypeString:
		w.Str = v.AsString()
	case event.TypeBytes:
		w.Bytes = v.AsBytes()
	}
	return w
}

func fromWire(w wireValue) event.AttributeValue {
	switch w.Type {
	case event.TypeInt:
		return event.Int(w.Int)
	case event.TypeLong:
		return event.Long(w.Long)
	case event.TypeFloat:
		return event.Float(w.Float)
	case event.TypeDouble:
		return event.Double(w.Dbl)
	case event.TypeBool:
		return event.Bool(w.Bool)
	case event.TypeString:
		return event.Str(w.Str)
	case event.TypeBytes:
		return event.Bytes(w.Bytes)
	default:
		return event.Null
	}
}

// wireEvent is the gob-encodable mirror of one StreamEvent's data (buffered
// windows never need to round-trip OnAfterWindowData/OutputData — only the
// admitted CURRENT event's BeforeWindowData matters for replay).
type wireEvent struct {
	Data      []wireValue
	Timestamp int64
}

func toWireEvent(se *event.StreamEvent) wireEvent {
	data := make([]wireValue, len(se.BeforeWindowData))
	for i, v := range se.BeforeWindowData {
		data[i] = toWire(v)
	}
	return wireEvent{Data: data, Timestamp: se.Timestamp}
}

func fromWireEvent(w wireEvent) *event.StreamEvent {
	data := make([]event.AttributeValue, len(w.Data))
	for i, v := range w.Data {
		data[i] = fromWire(v)
	}
	return &event.StreamEvent{
		BeforeWindowData:  data,
		OnAfterWindowData: append([]event.AttributeValue(nil), data...),
		OutputData:        make([]event.AttributeValue, 0),
		Timestamp:         w.Timestamp,
		Type:              event.Current,
	}
}

func encodeWireEvents(events []*event.StreamEvent) ([]byte, error) {
	wire := make([]wireEvent, len(events))
	for i, se := range events {
		wire[i] = toWireEvent(se)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeBatchState(s batchState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBatchState(payload []byte) (batchState, error) {
	var s batchState
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&s); err != nil {
		return s, err
	}
	return s, nil
}

func decodeWireEvents(payload []byte) ([]*event.StreamEvent, error) {
	var wire []wireEvent
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&wire); err != nil {
		return nil, err
	}
	out := make([]*event.StreamEvent, len(wire))
	for i, w := range wire {
		out[i] = fromWireEvent(w)
	}
	return out, nil
}
