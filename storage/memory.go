package storage

import (
	"errors"
	"sync"
)

// ErrWriteFailed is returned by a MemoryBackend with FailWrites set.
var ErrWriteFailed = errors.New("write failed")

// MemoryBackend is a process-local backend. It is used by tests and by
// `storage_backend = "memory"` for throwaway sessions.
type MemoryBackend struct {
	mu     sync.Mutex
	data   map[string]string
	writes int

	// FailWrites makes every Set fail, simulating a full or read-only store.
	FailWrites bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrWriteFailed
	}
	m.data[key] = value
	m.writes++
	return nil
}

// Writes returns how many successful Set calls the backend has seen.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryBackend) Close() error {
	return nil
}
