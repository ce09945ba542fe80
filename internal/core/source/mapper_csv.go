package source

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
)

// CSVSourceMapper implements the SourceMapper contract (spec §6) for one
// comma-delimited record per payload, fields in schema-attribute order —
// the reference mapper named in SPEC_FULL.md C.4
// (src/core/stream/mapper/csv_mapper.rs), kept in-tree for tests/examples
// since the transport layer itself (what decides a payload's bytes) is out
// of scope, not the mapper contract.
type CSVSourceMapper struct {
	attrs []event.Attribute
}

// NewCSVSourceMapper binds the schema each record's comma-separated fields
// are parsed into, in order.
func NewCSVSourceMapper(attrs []event.Attribute) *CSVSourceMapper {
	return &CSVSourceMapper{attrs: attrs}
}

// Map parses payload as a single CSV record (trailing newline tolerated).
func (m *CSVSourceMapper) Map(payload []byte) ([]*event.Event, error) {
	r := csv.NewReader(strings.NewReader(string(payload)))
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if err != nil {
		return nil, errs.Wrap(errs.MappingFailed, "malformed CSV record", err)
	}
	if len(record) != len(m.attrs) {
		return nil, errs.New(errs.MappingFailed, "CSV record has "+strconv.Itoa(len(record))+" fields, schema expects "+strconv.Itoa(len(m.attrs)))
	}

	data := make([]event.AttributeValue, len(m.attrs))
	for i, a := range m.attrs {
		v, err := parseCSVField(record[i], a.Type)
		if err != nil {
			return nil, errs.Wrap(errs.MappingFailed, "field "+a.Name+": parse failed", err)
		}
		data[i] = v
	}
	return []*event.Event{event.New(nowMillis(), data)}, nil
}

func parseCSVField(raw string, typ event.AttributeType) (event.AttributeValue, error) {
	switch typ {
	case event.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return event.Null, err
		}
		return event.Int(int32(n)), nil
	case event.TypeLong:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return event.Null, err
		}
		return event.Long(n), nil
	case event.TypeFloat:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return event.Null, err
		}
		return event.Float(float32(f)), nil
	case event.TypeDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return event.Null, err
		}
		return event.Double(f), nil
	case event.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return event.Null, err
		}
		return event.Bool(b), nil
	case event.TypeString:
		return event.Str(raw), nil
	case event.TypeBytes:
		return event.Bytes([]byte(raw)), nil
	default:
		return event.Null, errs.New(errs.UnsupportedFormat, "unsupported attribute type for CSV mapping")
	}
}

// CSVSinkMapper implements the SinkMapper contract (spec §6), rendering
// each Event as one comma-delimited record in schema-attribute order.
type CSVSinkMapper struct {
	attrs []event.Attribute
}

// NewCSVSinkMapper binds the attribute order events are rendered in.
func NewCSVSinkMapper(attrs []event.Attribute) *CSVSinkMapper {
	return &CSVSinkMapper{attrs: attrs}
}

// Map renders every event as one CSV record, newline-terminated.
func (m *CSVSinkMapper) Map(events []*event.Event) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	for _, e := range events {
		record := make([]string, len(m.attrs))
		for i := range m.attrs {
			var v event.AttributeValue
			if i < len(e.Data) {
				v = e.Data[i]
			}
			record[i] = v.String()
		}
		if err := w.Write(record); err != nil {
			return nil, errs.Wrap(errs.Serialization, "failed to render CSV record", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.Wrap(errs.Serialization, "failed to render CSV record", err)
	}
	return []byte(sb.String()), nil
}
