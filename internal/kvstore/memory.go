package kvstore

import "sync"

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	// FailNextSet, when set, makes the next Set return this error once.
	failNextSet error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set writes value under key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextSet != nil {
		err := s.failNextSet
		s.failNextSet = nil
		return err
	}
	s.data[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// FailNextSet arranges for the next Set call to fail with err.
func (s *MemoryStore) FailNextSet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextSet = err
}

// Put seeds a raw value directly, bypassing Set failure injection. Tests use
// this to plant corrupted blobs.
func (s *MemoryStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}
