package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// MemoryStore is a thread-safe in-memory Store. Runs are lost on restart,
// which is fine for local use and tests.
type MemoryStore struct {
	mu sync.RWMutex

	runs  map[string]*domain.CalibrationRun
	order []string // insertion order, breaks CreatedAt ties
}

// NewMemory creates an empty, ready-to-use MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*domain.CalibrationRun),
	}
}

// SaveRun stores a copy of run. Returns ErrDuplicateRun if the ID exists.
func (s *MemoryStore) SaveRun(_ context.Context, run *domain.CalibrationRun) error {
	if run == nil || run.ID == "" {
		return eris.Wrap(domain.ErrInvalidInput, "store: run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return eris.Wrapf(ErrDuplicateRun, "store: save run %s", run.ID)
	}
	s.runs[run.ID] = cloneRun(run)
	s.order = append(s.order, run.ID)
	return nil
}

// GetRun retrieves a single run by ID.
func (s *MemoryStore) GetRun(_ context.Context, id string) (*domain.CalibrationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "store: get run %s", id)
	}
	return cloneRun(run), nil
}

// ListRuns returns up to limit runs, newest first.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]domain.CalibrationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	for i, id := range s.order {
		ids[len(s.order)-1-i] = id
	}
	// stable keeps later inserts first among equal timestamps
	sort.SliceStable(ids, func(i, j int) bool {
		return s.runs[ids[i]].CreatedAt.After(s.runs[ids[j]].CreatedAt)
	})

	n := listLimit(limit)
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]domain.CalibrationRun, 0, n)
	for _, id := range ids[:n] {
		out = append(out, *cloneRun(s.runs[id]))
	}
	return out, nil
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func cloneRun(run *domain.CalibrationRun) *domain.CalibrationRun {
	c := *run
	c.Result.Curve = append([]domain.CurvePoint(nil), run.Result.Curve...)
	return &c
}
