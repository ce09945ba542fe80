package table

import "sync"

// InMemoryTable implements Table with an O(1) hash index keyed on the full
// row's canonical encoding, falling back to a linear scan for any condition
// that doesn't reduce to a full-row equality lookup (spec §4.5).
type InMemoryTable struct {
	mu    sync.RWMutex
	rows  []Row
	index map[string]int // canonical row encoding -> index into rows
}

func NewInMemoryTable() *InMemoryTable {
	return &InMemoryTable{index: make(map[string]int)}
}

func canonicalKey(row Row) string {
	key := ""
	for _, v := range row {
		key += v.String() + "\x1f"
	}
	return key
}

func (t *InMemoryTable) Insert(row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
	t.index[canonicalKey(row)] = len(t.rows) - 1
	return nil
}

// fullRowCondition reports whether cond is an EqualityCondition that pins
// every column of a row of width n — the only shape eligible for the O(1)
// index path (spec §4.5: "Index lookup is attempted first; miss -> scan").
func fullRowCondition(cond Condition, n int) (EqualityCondition, bool) {
	eq, ok := cond.(EqualityCondition)
	if !ok || len(eq.Values) != n {
		return EqualityCondition{}, false
	}
	for i := 0; i < n; i++ {
		if _, ok := eq.Values[i]; !ok {
			return EqualityCondition{}, false
		}
	}
	return eq, true
}

func (t *InMemoryTable) indexLookup(cond Condition) (int, bool) {
	if len(t.rows) == 0 {
		return 0, false
	}
	eq, ok := fullRowCondition(cond, len(t.rows[0]))
	if !ok {
		return 0, false
	}
	row := make(Row, len(eq.Values))
	for i, v := range eq.Values {
		row[i] = v
	}
	idx, ok := t.index[canonicalKey(row)]
	return idx, ok
}

func (t *InMemoryTable) Find(cond Condition) (Row, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx, ok := t.indexLookup(cond); ok {
		return t.rows[idx], true, nil
	}
	for _, r := range t.rows {
		if cond.Matches(r) {
			return r, true, nil
		}
	}
	return nil, false, nil
}

func (t *InMemoryTable) Contains(cond Condition) (bool, error) {
	_, found, err := t.Find(cond)
	return found, err
}

func (t *InMemoryTable) Update(cond Condition, upd UpdateSet) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.rows {
		if cond.Matches(r) {
			delete(t.index, canonicalKey(r))
			t.rows[i] = upd.Apply(r)
			t.index[canonicalKey(t.rows[i])] = i
			return true, nil
		}
	}
	return false, nil
}

func (t *InMemoryTable) Delete(cond Condition) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.rows {
		if cond.Matches(r) {
			delete(t.index, canonicalKey(r))
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			t.rebuildIndex()
			return true, nil
		}
	}
	return false, nil
}

func (t *InMemoryTable) rebuildIndex() {
	t.index = make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		t.index[canonicalKey(r)] = i
	}
}

func (t *InMemoryTable) AllRows() ([]Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

// ValidateConnectivity is always nil for an in-memory table — there's no
// external resource to reach.
func (t *InMemoryTable) ValidateConnectivity() error { return nil }
