package repository

import (
	"context"
	"sync"
)

// MemoryStorageRepository keeps client storage in process memory.
// Contents are lost on restart.
type MemoryStorageRepository struct {
	mu     sync.RWMutex
	scopes map[string]map[string]string
}

// NewMemoryStorageRepository returns an empty in-memory store.
func NewMemoryStorageRepository() *MemoryStorageRepository {
	return &MemoryStorageRepository{scopes: make(map[string]map[string]string)}
}

// Get returns the value stored under key for the scope.
func (m *MemoryStorageRepository) Get(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.scopes[scope][key]
	return v, ok, nil
}

// Set stores value under key for the scope.
func (m *MemoryStorageRepository) Set(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.scopes[scope]
	if !ok {
		kv = make(map[string]string)
		m.scopes[scope] = kv
	}
	kv[key] = value
	return nil
}

// Delete removes key from the scope.
func (m *MemoryStorageRepository) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.scopes[scope]
	if !ok {
		return nil
	}
	delete(kv, key)
	if len(kv) == 0 {
		delete(m.scopes, scope)
	}
	return nil
}
