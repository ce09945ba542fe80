package table

import "github.com/eventflux-io/engine/internal/core/event"

// InputHandler lets an INSERT INTO target SELECT ... statement populate a
// table directly, the same way a junction.Junction.Publish feeds a stream —
// bypassing the windowing/subscriber-fan-out machinery a stream junction
// carries, since a table has neither (spec §4.5, SPEC_FULL.md C.5).
//
// Grounded on original_source/src/core/stream/input/table_input_handler.rs:
// the original names this exact bypass (programmatic/query-driven table
// population skipping the full stream junction) as its own small type
// rather than folding it into the stream input path.
type InputHandler struct {
	t Table
}

// NewInputHandler binds one table as an INSERT INTO target.
func NewInputHandler(t Table) *InputHandler {
	return &InputHandler{t: t}
}

// Publish inserts e's attribute vector as one row — the same (*event.Event)
// error signature junction.Junction.Publish and source.DLQSink carry, so a
// query's output stage can target a table without a type switch at every
// call site.
func (h *InputHandler) Publish(e *event.Event) error {
	return h.t.Insert(Row(e.Data))
}
