package ledger

import (
	"context"
	"sync"
)

// Memory is an in-memory Ledger for tests.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
