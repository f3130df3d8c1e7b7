package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore. Used when
// run history should not outlive the process, and in tests.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]driven.RunRecord
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]driven.RunRecord),
	}
}

// SaveRun persists a completed run. Saving an existing ID replaces it.
func (s *RunStore) SaveRun(_ context.Context, rec driven.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.ID] = rec
	return nil
}

// GetRun retrieves a persisted run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (*driven.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// ListRuns returns up to limit persisted runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]driven.RunRecord, error) {
	s.mu.RLock()
	records := make([]driven.RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close releases resources (no-op for memory store).
func (s *RunStore) Close() error {
	return nil
}
