package storage

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"
)

// ErrKeyNotFound is returned when a key doesn't exist in the store
var ErrKeyNotFound = errors.New("key not found")

// StoreStats contains statistics about the store
type StoreStats struct {
	Keys    int    // Number of keys currently held
	Creates uint64 // Number of entries created by GetOrCreate
	Hits    uint64 // Number of GetOrCreate calls answered by an existing entry
	Deletes uint64 // Number of entries removed
}

// MemoryStore is a thread-safe in-memory table of values keyed by string.
// Values are stored as-is; callers that share pointers share the values.
// Uses sync.RWMutex for concurrent access.
type MemoryStore[V comparable] struct {
	mu    sync.RWMutex // Protects data and stats
	data  map[string]V // Key-value storage
	stats StoreStats
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore[V comparable]() *MemoryStore[V] {
	return &MemoryStore[V]{
		data: make(map[string]V),
	}
}

// Get retrieves a value by key
// Returns ErrKeyNotFound if the key doesn't exist
func (m *MemoryStore[V]) Get(key string) (V, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		var zero V
		return zero, ErrKeyNotFound
	}
	return value, nil
}

// GetOrCreate returns the value stored under key, or stores and returns the
// result of create if there is none. The check and the insert happen under
// one lock, so concurrent callers for the same key all receive the value
// that was stored first. created reports whether this call stored it.
func (m *MemoryStore[V]) GetOrCreate(key string, create func() V) (value V, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.data[key]; ok {
		m.stats.Hits++
		return existing, false
	}

	value = create()
	m.data[key] = value
	m.stats.Creates++
	return value, true
}

// Delete removes a key
// No error if key doesn't exist (idempotent)
func (m *MemoryStore[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		m.stats.Deletes++
	}
}

// CompareAndDelete removes key only while it still maps to old.
// It reports whether the entry was removed.
func (m *MemoryStore[V]) CompareAndDelete(key string, old V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.data[key]; !ok || current != old {
		return false
	}
	delete(m.data, key)
	m.stats.Deletes++
	return true
}

// List returns all keys in the store in sorted order
func (m *MemoryStore[V]) List() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

// Len returns the number of keys in the store
func (m *MemoryStore[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Stats returns storage statistics
func (m *MemoryStore[V]) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.stats
	s.Keys = len(m.data)
	return s
}
