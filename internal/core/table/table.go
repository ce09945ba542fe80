// Package table implements the Table abstraction (spec §4.5, C6): a
// concurrent row container addressed by compiled conditions, with an
// in-memory hash-indexed implementation and a JDBC-backed implementation
// delegating CRUD to prepared SQL statements.
//
// Grounded on the teacher's repository pattern (services/automation/supabase
// and system/platform/database), which wraps lib/pq/jmoiron/sqlx behind a
// small CRUD interface the same way JDBCTable does here, and on
// original_source/src/core/table/*.rs for the compiled-condition / index
// fallback shape.
package table

import "github.com/eventflux-io/engine/internal/core/event"

// Row is one table row: a fixed-arity vector of attribute values.
type Row []event.AttributeValue

// Condition is a predicate over a Row, built from the expression executor
// tree evaluated with the row bound as a StreamEvent's BeforeWindowData.
type Condition interface {
	Matches(row Row) bool
}

// UpdateSet describes how to mutate a row that matches a Condition:
// column index -> new value.
type UpdateSet map[int]event.AttributeValue

// Apply returns a new row with UpdateSet's columns overwritten.
func (u UpdateSet) Apply(row Row) Row {
	out := make(Row, len(row))
	copy(out, row)
	for i, v := range u {
		if i >= 0 && i < len(out) {
			out[i] = v
		}
	}
	return out
}

// Table is a concurrent row container (spec §4.5).
type Table interface {
	Insert(row Row) error
	Find(cond Condition) (Row, bool, error)
	Update(cond Condition, upd UpdateSet) (bool, error)
	Delete(cond Condition) (bool, error)
	Contains(cond Condition) (bool, error)
	AllRows() ([]Row, error)
	// ValidateConnectivity checks server reachability and schema presence
	// at app start (application-init validation phase, spec §7 phase 2).
	ValidateConnectivity() error
}
