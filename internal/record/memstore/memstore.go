// Package memstore provides an in-memory implementation of record.Store.
// Suitable for dev/testing.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/argus/internal/explain"
	"github.com/linnemanlabs/argus/internal/record"
)

// Store holds alert records in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record.Record
	order   []string // insertion order, newest last
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{records: make(map[string]*record.Record)}
}

// Insert stores a copy of the record. Duplicate ids are rejected.
func (s *Store) Insert(_ context.Context, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return record.ErrDuplicateID
	}
	cp := *r
	s.records[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

// Get retrieves a record by id. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*record.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// SetExplanation replaces the explanation and processed flag in place.
func (s *Store) SetExplanation(_ context.Context, id string, ex *explain.Explanation, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return record.ErrNotFound
	}
	r.Explanation = ex
	r.Processed = processed
	return nil
}

// UpdateStatus sets the record status.
func (s *Store) UpdateStatus(_ context.Context, id string, status record.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return record.ErrNotFound
	}
	r.Status = status
	return nil
}

// BulkUpdateStatus updates every listed id, skipping unknown ones, and
// returns how many matched.
func (s *Store) BulkUpdateStatus(_ context.Context, ids []string, status record.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			r.Status = status
			n++
		}
	}
	return n, nil
}

// List returns matching records, newest first.
func (s *Store) List(_ context.Context, f record.Filter) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*record.Record
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.records[s.order[i]]
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Priority != "" && r.Priority != f.Priority {
			continue
		}
		if f.Rule != "" && r.Rule != f.Rule {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// CountByStatus returns the number of records per status.
func (s *Store) CountByStatus(_ context.Context) (map[record.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[record.Status]int)
	for _, r := range s.records {
		out[r.Status]++
	}
	return out, nil
}

// Stats aggregates counts by priority and rule since the given time. A zero
// since includes everything.
func (s *Store) Stats(_ context.Context, since time.Time) (*record.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &record.Stats{
		ByPriority: make(map[string]int),
		ByRule:     make(map[string]int),
		Since:      since,
	}
	for _, r := range s.records {
		if !since.IsZero() && r.Timestamp.Before(since) {
			continue
		}
		st.Total++
		st.ByPriority[r.Priority]++
		st.ByRule[r.Rule]++
	}
	return st, nil
}

// IDs returns all record ids in insertion order. Test helper.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
