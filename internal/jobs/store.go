package jobs

import (
	"context"
	"sort"
	"sync"

	"github.com/jonathan/workflow-generator/internal/types"
)

// Store persists job records. Get returns ErrJobNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, rec *types.JobRecord) error
	Update(ctx context.Context, rec *types.JobRecord) error
	Get(ctx context.Context, id string) (*types.JobRecord, error)
	List(ctx context.Context, limit int) ([]*types.JobRecord, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.JobRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.JobRecord)}
}

// Create stores a copy of rec.
func (s *MemoryStore) Create(_ context.Context, rec *types.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// Update replaces the stored record.
func (s *MemoryStore) Update(_ context.Context, rec *types.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return ErrJobNotFound
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// Get returns a copy of the record.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns the most recently submitted records first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*types.JobRecord, error) {
	s.mu.RLock()
	out := make([]*types.JobRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
