// Package memory implements the local key/value store in process memory.
// Intended for tests; failure and latency hooks simulate a slow or failing
// backing store.
package memory

import (
	"context"
	"sync"
	"time"
)

// Store is a map-backed key/value store with injectable faults.
type Store struct {
	mu       sync.Mutex
	items    map[string][]byte
	failures int
	failErr  error
	latency  time.Duration
	ops      int
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{items: make(map[string][]byte)}
}

// FailNext makes the next n operations return err.
func (s *Store) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failErr = err
}

// SetLatency delays every operation by d, honoring context cancellation.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Ops reports how many operations have been attempted.
func (s *Store) Ops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops
}

func (s *Store) gate(ctx context.Context) error {
	s.mu.Lock()
	s.ops++
	latency := s.latency
	var err error
	if s.failures > 0 {
		s.failures--
		err = s.failErr
	}
	s.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// GetItem fetches the value stored under key.
func (s *Store) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.gate(ctx); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// SetItem stores value under key.
func (s *Store) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.gate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.items[key] = cp
	return nil
}

// RemoveItem deletes the value stored under key.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := s.gate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
