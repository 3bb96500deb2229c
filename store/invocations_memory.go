package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryInvocationStore keeps invocation records in memory. Intended for
// development and tests.
type MemoryInvocationStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*InvocationRecord
}

// NewMemoryInvocationStore creates an empty in-memory store.
func NewMemoryInvocationStore() *MemoryInvocationStore {
	return &MemoryInvocationStore{records: make(map[uuid.UUID]*InvocationRecord)}
}

func (s *MemoryInvocationStore) Record(_ context.Context, rec *InvocationRecord) error {
	rec.prepare()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("invocation %s: %w", rec.ID, ErrDuplicate)
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemoryInvocationStore) Get(_ context.Context, id uuid.UUID) (*InvocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("invocation %s: %w", id, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryInvocationStore) List(_ context.Context, f InvocationFilter) ([]*InvocationRecord, error) {
	s.mu.RLock()
	var out []*InvocationRecord
	for _, rec := range s.records {
		if f.matches(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	if f.Pagination.Offset >= len(out) {
		return []*InvocationRecord{}, nil
	}
	out = out[f.Pagination.Offset:]
	if limit := f.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
