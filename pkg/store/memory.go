package store

import (
	"context"
	"strings"
	"sync"
)

type memEntry struct {
	value []byte
	rev   int64
}

// MemoryStore implements the KV contract in process memory with per-key
// revisions, for tests and single-process development runs. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]memEntry
	nextRev int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.data[key]
	if !ok {
		return nil, 0, false, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, entry.rev, true, nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte)
	for key, entry := range m.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		value := make([]byte, len(entry.value))
		copy(value, entry.value)
		out[key] = value
	}
	return out, nil
}

func (m *MemoryStore) Txn(_ context.Context, guards []Guard, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range guards {
		entry, ok := m.data[g.Key]
		if g.Rev == 0 {
			if ok {
				return ErrTxnConflict
			}
			continue
		}
		if !ok || entry.rev != g.Rev {
			return ErrTxnConflict
		}
	}

	for _, op := range ops {
		if op.Del {
			delete(m.data, op.Key)
			continue
		}
		m.nextRev++
		value := make([]byte, len(op.Value))
		copy(value, op.Value)
		m.data[op.Key] = memEntry{value: value, rev: m.nextRev}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
