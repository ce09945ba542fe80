package table

import (
	"testing"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInMemoryTableCRUD is property P5: insert/contains/delete/update
// round-trip.
func TestInMemoryTableCRUD(t *testing.T) {
	tbl := NewInMemoryTable()
	row := Row{event.Int(1), event.Str("a")}
	require.NoError(t, tbl.Insert(row))

	cond := EqualityCondition{Values: map[int]event.AttributeValue{0: event.Int(1), 1: event.Str("a")}}
	found, err := tbl.Contains(cond)
	require.NoError(t, err)
	assert.True(t, found)

	ok, err := tbl.Delete(cond)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err = tbl.Contains(cond)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryTableUpdate(t *testing.T) {
	tbl := NewInMemoryTable()
	row := Row{event.Int(1), event.Str("a")}
	require.NoError(t, tbl.Insert(row))

	cond := EqualityCondition{Values: map[int]event.AttributeValue{0: event.Int(1)}}
	upd := UpdateSet{1: event.Str("b")}
	ok, err := tbl.Update(cond, upd)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := tbl.Find(EqualityCondition{Values: map[int]event.AttributeValue{0: event.Int(1), 1: event.Str("a")}})
	require.NoError(t, err)
	assert.False(t, found, "old row should no longer be found")

	_, found, err = tbl.Find(EqualityCondition{Values: map[int]event.AttributeValue{0: event.Int(1), 1: event.Str("b")}})
	require.NoError(t, err)
	assert.True(t, found, "updated row should be found")
}

func TestInMemoryTableScanFallback(t *testing.T) {
	tbl := NewInMemoryTable()
	require.NoError(t, tbl.Insert(Row{event.Int(1), event.Str("a")}))
	require.NoError(t, tbl.Insert(Row{event.Int(2), event.Str("b")}))

	cond := ExprCondition{Eval: func(r Row) bool { return r[0].AsInt() > 1 }}
	row, found, err := tbl.Find(cond)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int32(2), row[0].AsInt())
}
