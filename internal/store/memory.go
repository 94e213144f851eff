package store

import (
	"context"
	"sync"
)

// Memory is an in-process store for tests and CACHE_BACKEND=memory runs.
// Contents vanish with the process, so every invocation recomputes.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob := make([]byte, len(data))
	copy(blob, data)
	m.blobs[key] = blob
	return nil
}
