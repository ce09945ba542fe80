package source

import (
	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
)

// BytesSourceMapper implements the SourceMapper contract (spec §6) for a
// single-attribute raw-bytes schema — the reference mapper named in
// SPEC_FULL.md C.4 (src/core/stream/mapper/bytes_mapper.rs): no decoding at
// all, the payload becomes the lone BYTES (or STRING) attribute verbatim.
type BytesSourceMapper struct {
	attr event.Attribute
}

// NewBytesSourceMapper binds the single attribute a payload's raw bytes are
// carried as. attr.Type must be TypeBytes or TypeString.
func NewBytesSourceMapper(attr event.Attribute) *BytesSourceMapper {
	return &BytesSourceMapper{attr: attr}
}

func (m *BytesSourceMapper) Map(payload []byte) ([]*event.Event, error) {
	var v event.AttributeValue
	switch m.attr.Type {
	case event.TypeBytes:
		v = event.Bytes(append([]byte(nil), payload...))
	case event.TypeString:
		v = event.Str(string(payload))
	default:
		return nil, errs.New(errs.UnsupportedFormat, "BytesSourceMapper only supports BYTES or STRING attributes")
	}
	return []*event.Event{event.New(nowMillis(), []event.AttributeValue{v})}, nil
}

// BytesSinkMapper implements the SinkMapper contract (spec §6), rendering
// each event's single BYTES/STRING attribute as raw output bytes,
// concatenated in event order with no delimiter — the transport layer, if
// any, owns framing.
type BytesSinkMapper struct {
	index int
}

// NewBytesSinkMapper binds which attribute index carries the payload bytes.
func NewBytesSinkMapper(index int) *BytesSinkMapper {
	return &BytesSinkMapper{index: index}
}

func (m *BytesSinkMapper) Map(events []*event.Event) ([]byte, error) {
	var out []byte
	for _, e := range events {
		if m.index >= len(e.Data) {
			return nil, errs.New(errs.MappingFailed, "event has no attribute at bytes sink index")
		}
		v := e.Data[m.index]
		switch v.Type() {
		case event.TypeBytes:
			out = append(out, v.AsBytes()...)
		case event.TypeString:
			out = append(out, []byte(v.AsString())...)
		default:
			return nil, errs.New(errs.UnsupportedFormat, "BytesSinkMapper only supports BYTES or STRING attributes")
		}
	}
	return out, nil
}
