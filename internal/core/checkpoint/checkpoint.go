// Package checkpoint implements the checkpoint/restore subsystem (spec
// §4.7, C8): a StateHolder registry, a serialization envelope with
// per-holder metadata, and a pluggable PersistenceStore.
//
// Grounded on the teacher's infrastructure/database.Open + repository
// pattern for the Postgres-backed store, and on pkg/pgnotify/bus.go for the
// "one component owns a lock taken in turn, no global lock across
// components" shape that SnapshotService.Persist reuses when it walks
// holders in registration order.
package checkpoint

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/pkg/logger"
	"github.com/eventflux-io/engine/pkg/metrics"
)

// StateHolder is implemented by every stateful operator (windows,
// aggregations, pattern states, optionally tables) that must participate in
// checkpoint/restore.
type StateHolder interface {
	// SerializeState returns this holder's byte payload. hints carries
	// holder-specific serialization options (e.g. "include_expired").
	SerializeState(hints map[string]any) ([]byte, error)
	// DeserializeState replaces this holder's in-memory state from payload.
	DeserializeState(payload []byte) error
}

// StateSnapshot is one holder's framed payload: the byte payload plus a
// metadata header (spec §6 "Checkpoint envelope").
type StateSnapshot struct {
	Payload    []byte
	Version    uint32
	Compressed bool
	Checksum   uint32
	Hints      map[string]any
}

// SnapshotData is the checkpoint envelope persisted under one revision key
// (spec §6): a main payload plus one StateSnapshot per registered holder.
type SnapshotData struct {
	Main    []byte
	Holders map[string]StateSnapshot
}

// PersistReport is returned from Persist. Partial failure is failure: if
// any holder fails to serialize, Persist returns a non-nil error and the
// revision is not considered authoritative (spec §4.7) — the report is
// still populated so callers can inspect per-component diagnostics.
type PersistReport struct {
	Revision      string
	SuccessCount  int
	FailureCount  int
	Succeeded     []string
	Failed        map[string]error
}

const snapshotVersion uint32 = 1

// PersistenceStore is the pluggable backing store for checkpoint revisions
// (spec §6). In-memory, Redis and Postgres implementations conform.
type PersistenceStore interface {
	Save(appID, revision string, data []byte) error
	Load(appID, revision string) ([]byte, bool, error)
	GetLastRevision(appID string) (string, bool, error)
	ClearAllRevisions(appID string) error
}

// SnapshotService owns the StateHolder registry for one app instance and
// drives Persist/Restore against a PersistenceStore.
type SnapshotService struct {
	appID string
	store PersistenceStore
	log   *logger.Logger

	mu      sync.Mutex
	order   []string
	holders map[string]StateHolder

	compress bool
}

// NewSnapshotService binds a registry to an app id and backing store.
func NewSnapshotService(appID string, store PersistenceStore, compress bool) *SnapshotService {
	return &SnapshotService{
		appID:    appID,
		store:    store,
		log:      logger.NewDefault("checkpoint"),
		holders:  make(map[string]StateHolder),
		compress: compress,
	}
}

// Register adds a StateHolder under id. Registration order is preserved and
// is the lock-acquisition order Persist uses (spec §5 "per-holder lock
// taken in turn; no global lock held across holders").
func (s *SnapshotService) Register(id string, holder StateHolder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.holders[id]; !exists {
		s.order = append(s.order, id)
	}
	s.holders[id] = holder
}

// Unregister removes a holder, e.g. when a query is torn down.
func (s *SnapshotService) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holders, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Persist serializes every registered holder, frames the envelope and saves
// it to the store under a revision key. revision is caller-supplied so it
// can be `strconv.FormatInt(clock.Now().UnixMilli(), 10)` (spec §6 "decimal
// milliseconds since epoch"); the service does not call time.Now() itself so
// callers can inject a mock clock for deterministic tests (spec §9).
func (s *SnapshotService) Persist(revision string) (*PersistReport, error) {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	holders := make(map[string]StateHolder, len(s.holders))
	for k, v := range s.holders {
		holders[k] = v
	}
	s.mu.Unlock()

	report := &PersistReport{Revision: revision, Failed: make(map[string]error)}
	snapshots := make(map[string]StateSnapshot, len(ids))

	for _, id := range ids {
		h := holders[id]
		payload, err := h.SerializeState(nil)
		if err != nil {
			report.FailureCount++
			report.Failed[id] = err
			metrics.CheckpointHolderFailures.WithLabelValues(s.appID, id).Inc()
			continue
		}
		framed, compressed, err := maybeCompress(payload, s.compress)
		if err != nil {
			report.FailureCount++
			report.Failed[id] = err
			continue
		}
		snapshots[id] = StateSnapshot{
			Payload:    framed,
			Version:    snapshotVersion,
			Compressed: compressed,
			Checksum:   crc32.ChecksumIEEE(framed),
		}
		report.SuccessCount++
		report.Succeeded = append(report.Succeeded, id)
	}

	if report.FailureCount > 0 {
		metrics.CheckpointRuns.WithLabelValues(s.appID, "failure").Inc()
		return report, errs.New(errs.Runtime,
			fmt.Sprintf("persist revision %s: %d of %d holders failed", revision, report.FailureCount, len(ids)))
	}

	envelope := SnapshotData{Holders: snapshots}
	bytes, err := encodeEnvelope(envelope)
	if err != nil {
		metrics.CheckpointRuns.WithLabelValues(s.appID, "failure").Inc()
		return report, errs.Wrap(errs.Serialization, "encode snapshot envelope", err)
	}
	if err := s.store.Save(s.appID, revision, bytes); err != nil {
		metrics.CheckpointRuns.WithLabelValues(s.appID, "failure").Inc()
		return report, errs.Wrap(errs.Io, "save revision to persistence store", err)
	}

	metrics.CheckpointRuns.WithLabelValues(s.appID, "success").Inc()
	s.log.WithField("revision", revision).WithField("holders", report.SuccessCount).Info("checkpoint persisted")
	return report, nil
}

// Restore loads revision, decodes the envelope, and replaces each
// registered holder's state. A holder id present in the envelope but not
// currently registered is a warning, not an error (forward compatibility
// with renamed components is deliberately weak, spec §4.7).
func (s *SnapshotService) Restore(revision string) error {
	raw, ok, err := s.store.Load(s.appID, revision)
	if err != nil {
		return errs.Wrap(errs.Io, "load revision from persistence store", err)
	}
	if !ok {
		return errs.New(errs.MissingParameter, fmt.Sprintf("no checkpoint found for revision %s", revision))
	}
	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return errs.Wrap(errs.Serialization, "decode snapshot envelope", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, snap := range envelope.Holders {
		h, exists := s.holders[id]
		if !exists {
			s.log.WithField("holder", id).Warn("checkpoint holder not registered, skipping")
			continue
		}
		if crc32.ChecksumIEEE(snap.Payload) != snap.Checksum {
			return errs.New(errs.ValidationFailed, fmt.Sprintf("checksum mismatch for holder %s", id))
		}
		payload, err := maybeDecompress(snap.Payload, snap.Compressed)
		if err != nil {
			return errs.Wrap(errs.Serialization, fmt.Sprintf("decompress holder %s", id), err)
		}
		if err := h.DeserializeState(payload); err != nil {
			return errs.Wrap(errs.Runtime, fmt.Sprintf("restore holder %s", id), err)
		}
	}

	s.log.WithField("revision", revision).Info("checkpoint restored")
	return nil
}

// LastRevision returns the most recent revision recorded for this app, if any.
func (s *SnapshotService) LastRevision() (string, bool, error) {
	rev, ok, err := s.store.GetLastRevision(s.appID)
	if err != nil {
		return "", false, errs.Wrap(errs.Io, "get last revision", err)
	}
	return rev, ok, nil
}

func maybeCompress(payload []byte, enabled bool) ([]byte, bool, error) {
	if !enabled {
		return payload, false, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, false, err
	}
	if err := w.Close(); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

func maybeDecompress(payload []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return payload, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func encodeEnvelope(data SnapshotData) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEnvelope(raw []byte) (SnapshotData, error) {
	var data SnapshotData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return data, err
	}
	return data, nil
}
