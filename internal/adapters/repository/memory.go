package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
)

// MemoryStore is an in-memory Store safe for concurrent use. Reads return
// copies so callers never share slices with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*Run
	order   []string
	maxRuns int
	onEvict func(runID string)
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{runs: make(map[string]*Run)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, r Run) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	id := r.Status.RunID
	if _, ok := s.runs[id]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	var evicted string
	if s.maxRuns > 0 && len(s.runs) >= s.maxRuns {
		evicted = s.evictOldestFinished()
	}
	cp := clone(r)
	s.runs[id] = &cp
	s.order = append(s.order, id)
	s.mu.Unlock()

	if evicted != "" && s.onEvict != nil {
		s.onEvict(evicted)
	}
	return nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(_ context.Context, st workflow.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[st.RunID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, st.RunID)
	}
	r.Status = st
	return nil
}

// Finish implements Store.
func (s *MemoryStore) Finish(_ context.Context, res workflow.Result) error { //nolint:gocritic // hugeParam: read-only
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[res.Status.RunID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, res.Status.RunID)
	}
	r.Status = res.Status
	r.Results = append([]model.AnalyzedOpportunity(nil), res.Results...)
	r.Decisions = append([]model.ReflectionDecision(nil), res.Decisions...)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, runID string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return clone(*r), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) []Run {
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, clone(*r))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Status, out[j].Status
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.RunID < b.RunID
	})
	return out
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) map[workflow.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[workflow.Status]int{
		workflow.StatusRunning:   0,
		workflow.StatusCompleted: 0,
		workflow.StatusFailed:    0,
	}
	for _, r := range s.runs {
		out[r.Status.Status]++
	}
	return out
}

// evictOldestFinished drops the oldest finished run and returns its ID, or
// "" when every run is still running. Must be called with s.mu held.
func (s *MemoryStore) evictOldestFinished() string {
	for i, id := range s.order {
		if s.runs[id].Status.Status == workflow.StatusRunning {
			continue
		}
		delete(s.runs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
		return id
	}
	return ""
}

func clone(r Run) Run { //nolint:gocritic // hugeParam: copy is the point
	r.Status.Degradations = append([]model.Degradation{}, r.Status.Degradations...)
	if r.Status.FinishedAt != nil {
		t := *r.Status.FinishedAt
		r.Status.FinishedAt = &t
	}
	r.Results = append([]model.AnalyzedOpportunity(nil), r.Results...)
	r.Decisions = append([]model.ReflectionDecision(nil), r.Decisions...)
	return r
}
