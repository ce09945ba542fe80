// Package metrics exposes the Prometheus collectors the engine records
// against. It does not start an HTTP exporter — wiring a `/metrics` endpoint
// is the embedder's job (see spec.md §1, telemetry exporters out of scope).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the engine's Prometheus collectors. Embedders that want an
// HTTP exporter register this with promhttp.HandlerFor themselves.
var Registry = prometheus.NewRegistry()

var (
	EventsIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "junction",
			Name:      "events_in_total",
			Help:      "Total number of events published into a stream junction.",
		},
		[]string{"stream"},
	)

	EventsOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "junction",
			Name:      "events_out_total",
			Help:      "Total number of events delivered to subscribers of a stream junction.",
		},
		[]string{"stream"},
	)

	JunctionQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "eventflux",
			Subsystem: "junction",
			Name:      "async_queue_depth",
			Help:      "Current depth of an async junction's bounded channel.",
		},
		[]string{"stream"},
	)

	WindowEmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "window",
			Name:      "emissions_total",
			Help:      "Total number of chunks emitted by a window operator, split by event type.",
		},
		[]string{"query", "window_type", "event_type"},
	)

	JoinEmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "join",
			Name:      "emissions_total",
			Help:      "Total number of combined events emitted by a join operator.",
		},
		[]string{"query", "join_type"},
	)

	PatternCandidates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "eventflux",
			Subsystem: "pattern",
			Name:      "active_candidates",
			Help:      "Number of in-flight partial matches held by a pattern step.",
		},
		[]string{"query", "step"},
	)

	PatternMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "pattern",
			Name:      "matches_total",
			Help:      "Total number of completed pattern matches emitted.",
		},
		[]string{"query"},
	)

	CheckpointRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "checkpoint",
			Name:      "runs_total",
			Help:      "Total number of persist() calls, split by outcome.",
		},
		[]string{"app_id", "outcome"},
	)

	CheckpointHolderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "checkpoint",
			Name:      "holder_failures_total",
			Help:      "Total number of individual state-holder serialization failures.",
		},
		[]string{"app_id", "holder_id"},
	)

	SourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total number of source-side errors, split by strategy applied.",
		},
		[]string{"stream", "strategy"},
	)

	DLQEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflux",
			Subsystem: "source",
			Name:      "dlq_events_total",
			Help:      "Total number of events routed to a dead-letter stream.",
		},
		[]string{"stream", "error_type"},
	)
)

func init() {
	Registry.MustRegister(
		EventsIn,
		EventsOut,
		JunctionQueueDepth,
		WindowEmissions,
		JoinEmissions,
		PatternCandidates,
		PatternMatches,
		CheckpointRuns,
		CheckpointHolderFailures,
		SourceErrors,
		DLQEvents,
	)
}
