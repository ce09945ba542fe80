package checkpoint

import (
	"sort"
	"sync"
)

// InMemoryStore is a PersistenceStore backed by a process-local map, the
// default for tests and for embeddings that don't need cross-restart
// durability.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // appID -> revision -> bytes
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *InMemoryStore) Save(appID, revision string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[appID] == nil {
		s.data[appID] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[appID][revision] = cp
	return nil
}

func (s *InMemoryStore) Load(appID, revision string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs, ok := s.data[appID]
	if !ok {
		return nil, false, nil
	}
	raw, ok := revs[revision]
	return raw, ok, nil
}

func (s *InMemoryStore) GetLastRevision(appID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs, ok := s.data[appID]
	if !ok || len(revs) == 0 {
		return "", false, nil
	}
	keys := make([]string, 0, len(revs))
	for k := range revs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // revisions are decimal ms-epoch strings; lexical sort is numeric for equal-length keys
	return keys[len(keys)-1], true, nil
}

func (s *InMemoryStore) ClearAllRevisions(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, appID)
	return nil
}
