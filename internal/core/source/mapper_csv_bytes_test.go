package source

import (
	"testing"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSourceMapperParsesRecord(t *testing.T) {
	attrs := []event.Attribute{
		{Name: "symbol", Type: event.TypeString},
		{Name: "qty", Type: event.TypeInt},
		{Name: "price", Type: event.TypeDouble},
	}
	m := NewCSVSourceMapper(attrs)
	events, err := m.Map([]byte("AAPL,10,150.5\n"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	data := events[0].Data
	assert.Equal(t, "AAPL", data[0].AsString())
	assert.Equal(t, int32(10), data[1].AsInt())
	assert.Equal(t, 150.5, data[2].AsDouble())
}

func TestCSVSourceMapperFieldCountMismatch(t *testing.T) {
	m := NewCSVSourceMapper([]event.Attribute{{Name: "a", Type: event.TypeInt}})
	_, err := m.Map([]byte("1,2\n"))
	assert.Error(t, err)
}

func TestCSVSinkMapperRendersRecord(t *testing.T) {
	attrs := []event.Attribute{{Name: "symbol", Type: event.TypeString}, {Name: "qty", Type: event.TypeInt}}
	m := NewCSVSinkMapper(attrs)
	e := event.New(0, []event.AttributeValue{event.Str("AAPL"), event.Int(10)})
	b, err := m.Map([]*event.Event{e})
	require.NoError(t, err)
	assert.Equal(t, "AAPL,10\n", string(b))
}

func TestBytesSourceMapperPassesPayloadThrough(t *testing.T) {
	m := NewBytesSourceMapper(event.Attribute{Name: "raw", Type: event.TypeBytes})
	events, err := m.Map([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, events[0].Data[0].AsBytes())
}

func TestBytesSinkMapperConcatenatesPayloads(t *testing.T) {
	m := NewBytesSinkMapper(0)
	e1 := event.New(0, []event.AttributeValue{event.Bytes([]byte("ab"))})
	e2 := event.New(0, []event.AttributeValue{event.Bytes([]byte("cd"))})
	b, err := m.Map([]*event.Event{e1, e2})
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(b))
}
