package runstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/laborsync/internal/pipeline"
)

// MemoryStore keeps run history in-memory for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]pipeline.Run
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]pipeline.Run)}
}

// CreateRun records a newly started run.
func (s *MemoryStore) CreateRun(_ context.Context, run pipeline.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %q already exists", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// FinishRun marks a run terminal.
func (s *MemoryStore) FinishRun(_ context.Context, id string, status pipeline.RunStatus, finished time.Time, detail []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Status = status
	run.Finished = &finished
	run.Detail = append([]byte(nil), detail...)
	s.runs[id] = run
	return nil
}

// GetRun returns one run by ID.
func (s *MemoryStore) GetRun(_ context.Context, id string) (pipeline.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return pipeline.Run{}, ErrNotFound
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]pipeline.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]pipeline.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.After(runs[j].Started) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
