// Package memory implements the simple synchronous storage collaborator in
// process memory. Intended for tests.
package memory

import (
	"errors"
	"sync"
)

// Store is a map-backed settings store with an injectable write failure.
type Store struct {
	mu       sync.Mutex
	items    map[string]string
	failSets bool
}

// NewStore returns an empty in-memory settings store.
func NewStore() *Store {
	return &Store{items: make(map[string]string)}
}

// FailWrites makes every subsequent SetItem fail. Test hook.
func (s *Store) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSets = fail
}

// GetItem returns the stored string for key.
func (s *Store) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.items[key]
	return val, ok
}

// SetItem stores value under key.
func (s *Store) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSets {
		return errors.New("settings store write failure")
	}
	s.items[key] = value
	return nil
}

// RemoveItem deletes the value stored under key.
func (s *Store) RemoveItem(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}
