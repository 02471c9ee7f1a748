package best

import (
	"context"
	"slices"
	"sync"
)

// memoryKV is a map-based KV. Contents are lost on restart.
type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV constructs an in-memory KV
func NewMemoryKV() KV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return slices.Clone(v), nil
	}
	return nil, ErrNotFound
}

func (m *memoryKV) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *memoryKV) Close() error { return nil }
