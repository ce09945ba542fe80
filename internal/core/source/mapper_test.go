package source

import (
	"testing"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSourceMapperPlainPaths(t *testing.T) {
	m := NewJSONSourceMapper([]FieldMapping{
		{Attr: event.Attribute{Name: "id", Type: event.TypeInt}, Path: "id"},
		{Attr: event.Attribute{Name: "name", Type: event.TypeString}, Path: "user.name"},
		{Attr: event.Attribute{Name: "active", Type: event.TypeBool}, Path: "active"},
	})
	events, err := m.Map([]byte(`{"id": 7, "user": {"name": "ada"}, "active": true}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	data := events[0].Data
	assert.Equal(t, int32(7), data[0].AsInt())
	assert.Equal(t, "ada", data[1].AsString())
	assert.Equal(t, true, data[2].AsBool())
}

func TestJSONSourceMapperMissingPathIsMappingError(t *testing.T) {
	m := NewJSONSourceMapper([]FieldMapping{
		{Attr: event.Attribute{Name: "id", Type: event.TypeInt}, Path: "id"},
	})
	_, err := m.Map([]byte(`{}`))
	assert.Error(t, err)
}

func TestJSONSourceMapperJSONPathExpression(t *testing.T) {
	m := NewJSONSourceMapper([]FieldMapping{
		{Attr: event.Attribute{Name: "first", Type: event.TypeDouble}, Path: "$.values[0]"},
	})
	events, err := m.Map([]byte(`{"values": [3.5, 4.5]}`))
	require.NoError(t, err)
	assert.Equal(t, 3.5, events[0].Data[0].AsDouble())
}

func TestJSONSinkMapperRendersObjects(t *testing.T) {
	attrs := []event.Attribute{{Name: "id", Type: event.TypeInt}, {Name: "name", Type: event.TypeString}}
	m := NewJSONSinkMapper(attrs)
	e := event.New(0, []event.AttributeValue{event.Int(1), event.Str("ada")})
	b, err := m.Map([]*event.Event{e})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"ada"}]`, string(b))
}

func TestMarshalEventJSONForDLQ(t *testing.T) {
	attrs := []event.Attribute{{Name: "v", Type: event.TypeInt}}
	e := event.New(0, []event.AttributeValue{event.Int(42)})
	b, err := MarshalEventJSON(e, attrs)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"v":42}]`, string(b))
}
