package state

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps flow runs in process memory. Suitable for tests and
// single-process development; snapshots are deep-copied on both write and
// read so callers cannot alias store internals.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*FlowRun
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*FlowRun)}
}

func (s *MemoryStore) Save(_ context.Context, run *FlowRun) error {
	cp, err := copyRun(run)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	cp.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.runs[cp.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	s.runs[cp.ID] = cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*FlowRun, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return copyRun(run)
}

func (s *MemoryStore) List(_ context.Context, flowName string) ([]*FlowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*FlowRun
	for _, run := range s.runs {
		if flowName != "" && run.FlowName != flowName {
			continue
		}
		cp, err := copyRun(run)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	return nil
}

func copyRun(run *FlowRun) (*FlowRun, error) {
	b, err := json.Marshal(run)
	if err != nil {
		return nil, err
	}
	var cp FlowRun
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, err
	}
	// Timestamps survive the round trip; only aliasing is removed.
	cp.CreatedAt = run.CreatedAt
	cp.UpdatedAt = run.UpdatedAt
	return &cp, nil
}
