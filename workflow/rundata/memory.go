package rundata

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries[e.ExecutionID] = append(s.entries[e.ExecutionID], e)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, executionID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, len(s.entries[executionID]))
	copy(out, s.entries[executionID])
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
