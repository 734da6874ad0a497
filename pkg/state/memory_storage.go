package state

import (
	"context"
	"sync"
)

// MemoryStorage is a volatile Storage for tests and single-process runs.
type MemoryStorage struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{docs: make(map[string]map[string]any)}
}

func (m *MemoryStorage) Read(ctx context.Context, keys []string) (map[string]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[string]any, len(keys))
	for _, key := range keys {
		if doc, ok := m.docs[key]; ok {
			copied, err := cloneDocument(doc)
			if err != nil {
				return nil, err
			}
			out[key] = copied
		}
	}
	return out, nil
}

func (m *MemoryStorage) Write(ctx context.Context, changes map[string]map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, doc := range changes {
		copied, err := cloneDocument(doc)
		if err != nil {
			return err
		}
		m.docs[key] = copied
	}
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.docs, key)
	}
	return nil
}
