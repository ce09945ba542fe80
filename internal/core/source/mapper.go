package source

import (
	"encoding/json"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/tidwall/gjson"
)

// FieldMapping binds one attribute of a stream's schema to where its value
// lives in an inbound JSON payload. Path is a gjson path for the common
// "plain dotted field" case; a path starting with "$" is instead resolved
// with PaesslerAG/jsonpath, for payloads that need real JSONPath filters or
// array predicates gjson's simpler dialect can't express.
type FieldMapping struct {
	Attr event.Attribute
	Path string
}

// JSONSourceMapper implements the SourceMapper contract (spec §6:
// "SourceMapper::map(&[u8]) -> Result<Vec<Event>>") for a single JSON
// object payload: one inbound payload produces exactly one Event, with
// each attribute pulled from the payload per its FieldMapping.
type JSONSourceMapper struct {
	fields []FieldMapping
}

// NewJSONSourceMapper binds a field mapping list, in schema-attribute
// order.
func NewJSONSourceMapper(fields []FieldMapping) *JSONSourceMapper {
	return &JSONSourceMapper{fields: fields}
}

// Map extracts one Event's attribute vector from payload.
func (m *JSONSourceMapper) Map(payload []byte) ([]*event.Event, error) {
	data := make([]event.AttributeValue, len(m.fields))
	for i, f := range m.fields {
		v, err := extractField(payload, f)
		if err != nil {
			return nil, errs.Wrap(errs.MappingFailed, "field "+f.Attr.Name+": extraction failed", err)
		}
		data[i] = v
	}
	return []*event.Event{event.New(nowMillis(), data)}, nil
}

func extractField(payload []byte, f FieldMapping) (event.AttributeValue, error) {
	if strings.HasPrefix(f.Path, "$") {
		return extractJSONPath(payload, f)
	}
	res := gjson.GetBytes(payload, f.Path)
	if !res.Exists() {
		return event.Null, errs.New(errs.MappingFailed, "path not found: "+f.Path)
	}
	return coerceGjson(res, f.Attr.Type)
}

func extractJSONPath(payload []byte, f FieldMapping) (event.AttributeValue, error) {
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return event.Null, err
	}
	v, err := jsonpath.Get(f.Path, doc)
	if err != nil {
		return event.Null, err
	}
	return coerceAny(v, f.Attr.Type)
}

func coerceGjson(res gjson.Result, typ event.AttributeType) (event.AttributeValue, error) {
	switch typ {
	case event.TypeInt:
		return event.Int(int32(res.Int())), nil
	case event.TypeLong:
		return event.Long(res.Int()), nil
	case event.TypeFloat:
		return event.Float(float32(res.Float())), nil
	case event.TypeDouble:
		return event.Double(res.Float()), nil
	case event.TypeBool:
		return event.Bool(res.Bool()), nil
	case event.TypeString:
		return event.Str(res.String()), nil
	case event.TypeBytes:
		return event.Bytes([]byte(res.String())), nil
	case event.TypeObject:
		return event.Object(res.Value()), nil
	default:
		return event.Null, errs.New(errs.UnsupportedFormat, "unsupported attribute type for JSON mapping")
	}
}

func coerceAny(v interface{}, typ event.AttributeType) (event.AttributeValue, error) {
	switch typ {
	case event.TypeInt:
		f, ok := v.(float64)
		if !ok {
			return event.Null, errs.New(errs.MappingFailed, "expected numeric value")
		}
		return event.Int(int32(f)), nil
	case event.TypeLong:
		f, ok := v.(float64)
		if !ok {
			return event.Null, errs.New(errs.MappingFailed, "expected numeric value")
		}
		return event.Long(int64(f)), nil
	case event.TypeFloat:
		f, ok := v.(float64)
		if !ok {
			return event.Null, errs.New(errs.MappingFailed, "expected numeric value")
		}
		return event.Float(float32(f)), nil
	case event.TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return event.Null, errs.New(errs.MappingFailed, "expected numeric value")
		}
		return event.Double(f), nil
	case event.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return event.Null, errs.New(errs.MappingFailed, "expected boolean value")
		}
		return event.Bool(b), nil
	case event.TypeString:
		s, ok := v.(string)
		if !ok {
			return event.Null, errs.New(errs.MappingFailed, "expected string value")
		}
		return event.Str(s), nil
	case event.TypeObject:
		return event.Object(v), nil
	default:
		return event.Null, errs.New(errs.UnsupportedFormat, "unsupported attribute type for JSON mapping")
	}
}

// JSONSinkMapper implements the SinkMapper contract (spec §6:
// "SinkMapper::map(&[Event]) -> Result<Vec<u8>>"), rendering each Event as
// a JSON object keyed by its schema's attribute names.
type JSONSinkMapper struct {
	attrs []event.Attribute
}

// NewJSONSinkMapper binds the attribute names events will be rendered
// under, in schema order matching event.Data.
func NewJSONSinkMapper(attrs []event.Attribute) *JSONSinkMapper {
	return &JSONSinkMapper{attrs: attrs}
}

// Map renders events as a JSON array of objects.
func (m *JSONSinkMapper) Map(events []*event.Event) ([]byte, error) {
	out := make([]map[string]interface{}, len(events))
	for i, e := range events {
		out[i] = m.objectOf(e)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, errs.Wrap(errs.MappingFailed, "JSON encode failed", err)
	}
	return b, nil
}

func (m *JSONSinkMapper) objectOf(e *event.Event) map[string]interface{} {
	obj := make(map[string]interface{}, len(m.attrs))
	for i, a := range m.attrs {
		if i >= len(e.Data) {
			continue
		}
		obj[a.Name] = anyOf(e.Data[i])
	}
	return obj
}

func anyOf(v event.AttributeValue) interface{} {
	switch v.Type() {
	case event.TypeInt:
		return v.AsInt()
	case event.TypeLong:
		return v.AsLong()
	case event.TypeFloat:
		return v.AsFloat()
	case event.TypeDouble:
		return v.AsDouble()
	case event.TypeBool:
		return v.AsBool()
	case event.TypeString:
		return v.AsString()
	case event.TypeBytes:
		return v.AsBytes()
	case event.TypeObject:
		return v.AsObject()
	default:
		return nil
	}
}

// MarshalEventJSON renders a single Event as the JSON object a DLQ record's
// originalEvent field expects (spec §6 P7: "originalEvent equal to the JSON
// serialization of the input event").
func MarshalEventJSON(e *event.Event, attrs []event.Attribute) ([]byte, error) {
	return NewJSONSinkMapper(attrs).Map([]*event.Event{e})
}
