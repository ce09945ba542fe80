// Package runtime implements two supplemented features the embedding layer
// needs but the distilled spec only names in prose (SPEC_FULL.md §C.1-2):
// a ShutdownCoordinator sequencing the spec §5 cancellation order, and a
// Health aggregator for source/sink/table connectivity checks.
//
// Grounded on the teacher's system/bootstrap.Shutdown (stop-then-uninstall
// sequencing, continue-on-error with logging) generalized from "stop
// engine, then uninstall packages" to "stop sources, then drain async
// junctions with a bounded timeout, then flush sinks" (spec §5).
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/eventflux-io/engine/pkg/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stoppable is anything with a Stop() error lifecycle hook, e.g. sources
// and sinks.
type Stoppable interface {
	Stop() error
}

// Drainable is an async junction's bounded-timeout drain hook.
type Drainable interface {
	// Drain blocks until pending events are delivered or the context
	// deadline/cancellation fires, whichever comes first.
	Drain(ctx context.Context) error
}

// Flushable is a sink's final flush hook.
type Flushable interface {
	Flush() error
}

// ShutdownCoordinator sequences runtime shutdown: stop sources first, then
// drain async junctions (bounded timeout), then flush sinks (spec §5
// "Cancellation"). Every stage runs best-effort: a failure at one stage is
// logged and does not stop later stages from running, the same
// continue-on-error shape as the teacher's package-uninstall loop.
type ShutdownCoordinator struct {
	sources   []Stoppable
	junctions []Drainable
	sinks     []Flushable
	log       *logger.Logger
}

// NewShutdownCoordinator creates an empty coordinator.
func NewShutdownCoordinator() *ShutdownCoordinator {
	return &ShutdownCoordinator{log: logger.NewDefault("runtime")}
}

// AddSource registers a source to be stopped first.
func (c *ShutdownCoordinator) AddSource(s Stoppable) { c.sources = append(c.sources, s) }

// AddJunction registers an async junction to be drained second.
func (c *ShutdownCoordinator) AddJunction(j Drainable) { c.junctions = append(c.junctions, j) }

// AddSink registers a sink to be flushed last.
func (c *ShutdownCoordinator) AddSink(s Flushable) { c.sinks = append(c.sinks, s) }

// Shutdown runs the three-stage sequence, bounding the drain stage by
// drainTimeout. It collects every stage error (rather than stopping at the
// first) and returns them joined, or nil if every stage succeeded.
func (c *ShutdownCoordinator) Shutdown(drainTimeout time.Duration) error {
	var errsList []error

	for _, s := range c.sources {
		if err := s.Stop(); err != nil {
			c.log.WithError(err).Warn("error stopping source during shutdown")
			errsList = append(errsList, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for _, j := range c.junctions {
		if err := j.Drain(ctx); err != nil {
			c.log.WithError(err).Warn("error draining junction during shutdown")
			errsList = append(errsList, err)
		}
	}

	for _, s := range c.sinks {
		if err := s.Flush(); err != nil {
			c.log.WithError(err).Warn("error flushing sink during shutdown")
			errsList = append(errsList, err)
		}
	}

	if len(errsList) == 0 {
		return nil
	}
	return fmt.Errorf("shutdown completed with %d error(s): %v", len(errsList), errsList)
}

// ConnectivityChecker is implemented by sources, sinks and JDBC-backed
// tables (spec §7 phase 2, "validate_connectivity() on every
// source/sink/table — fail fast").
type ConnectivityChecker interface {
	ValidateConnectivity() error
}

// SystemStats is a host resource snapshot attached to Health, grounded on
// the teacher's github.com/shirou/gopsutil/v3 dependency — declared in its
// go.mod but never wired to a concrete call site there; the liveness report
// is this repo's use for it (spec §C.2: "an embedding process" consumes
// Health however it likes, and host CPU/memory/uptime are the natural
// complement to per-component connectivity when deciding whether a node is
// healthy enough to keep serving).
type SystemStats struct {
	CPUPercent    float64
	MemUsedBytes  uint64
	MemTotalBytes uint64
	UptimeSeconds uint64
}

// collectSystemStats reads a best-effort host snapshot via gopsutil. A
// partial read (e.g. CPU sampling unsupported on the host OS) still returns
// whatever fields succeeded rather than discarding the whole snapshot.
func collectSystemStats() SystemStats {
	var stats SystemStats
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsedBytes = vm.Used
		stats.MemTotalBytes = vm.Total
	}
	if uptime, err := host.Uptime(); err == nil {
		stats.UptimeSeconds = uptime
	}
	return stats
}

// Health aggregates per-component connectivity results, a liveness flag, and
// a host resource snapshot, for an embedding process to expose however it
// likes (not a network endpoint itself — that would be the excluded HTTP
// layer, spec §C.2).
type Health struct {
	Live       bool
	Components map[string]error // nil error means healthy
	System     SystemStats
}

// CheckHealth runs ValidateConnectivity on every named component and
// reports the aggregate, plus a gopsutil-backed host resource snapshot.
// Live is true iff every component is nil-error.
func CheckHealth(components map[string]ConnectivityChecker) Health {
	h := Health{Components: make(map[string]error, len(components)), Live: true, System: collectSystemStats()}
	for name, c := range components {
		err := c.ValidateConnectivity()
		h.Components[name] = err
		if err != nil {
			h.Live = false
		}
	}
	return h
}
