// Package window implements the nine window operators of spec §4.2.1: a
// window consumes a chunk of CURRENT events and emits a chunk pairing them
// with synthesized EXPIRED events for whatever previously-emitted events are
// now leaving the window. Downstream aggregators add-on-CURRENT,
// remove-on-EXPIRED.
//
// Grounded on original_source/src/core/query/processor/stream/window/*.rs for
// per-window eviction semantics, and on the teacher's domain/automation
// scheduler usage (time/cron windows) generalized to arbitrary window
// deadlines via internal/core/scheduler.
package window

import (
	"strings"
	"sync"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/pkg/metrics"
)

// appendChunk links b onto the end of a (a may be nil) and returns the head.
// Thin wrapper over event.Append kept local so window files read without an
// extra qualifier.
func appendChunk(a, b *event.StreamEvent) *event.StreamEvent { return event.Append(a, b) }

// expiredCopyOf produces the synthesized EXPIRED twin of a previously-emitted
// CURRENT event, detached from any chunk.
func expiredCopyOf(se *event.StreamEvent) *event.StreamEvent {
	cp := se.CloneAsType(event.Expired)
	cp.Next = nil
	return cp
}

// base holds the bookkeeping every window processor shares: chain wiring and
// a mutex, since Process may run on a publisher thread concurrently with a
// scheduler goroutine-driven expiry (spec §5: "async junctions own one
// worker thread per junction").
type base struct {
	processor.BaseProcessor
	mu      sync.Mutex
	queryID string
}

func (b *base) IsStateful() bool { return true }

// SetQueryID tags this window with the query/target-stream label BuildWindow
// resolves it against (spec §B domain stack: the "query" label on the
// eventflux_window_emissions_total metric). The query builder calls this
// once at wiring time; Clone propagates it to partitioned-query copies.
func (b *base) SetQueryID(id string) { b.queryID = id }

// emit records the per-event-type emission count for this window type (spec
// §B: "window emissions") before forwarding chunk to the next processor.
func (b *base) emit(windowType string, chunk *event.StreamEvent) {
	for cur := chunk; cur != nil; cur = cur.Next {
		metrics.WindowEmissions.WithLabelValues(b.queryID, windowType, strings.ToLower(cur.Type.String())).Inc()
	}
	b.Forward(chunk)
}
