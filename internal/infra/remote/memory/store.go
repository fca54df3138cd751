// Package memory implements the remote document store in process memory.
// Intended for tests; failure hooks simulate an unreachable or flaky remote
// service.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"piececore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.RemoteStore = (*Store)(nil)

// Store is a map-backed document store.
type Store struct {
	mu       sync.Mutex
	docs     map[string]domain.RawRecord
	queryErr error
	writeErr error
	probeErr error
	commits  int
}

// NewStore returns an empty in-memory document store.
func NewStore() *Store {
	return &Store{docs: make(map[string]domain.RawRecord)}
}

// Seed installs a document under a known id. Test hook.
func (s *Store) Seed(id string, fields domain.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = cloneRecord(fields)
}

// FailReads makes queries and gets return err (nil restores).
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// FailWrites makes mutations and batch commits return err (nil restores).
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailProbe makes connectivity probes return err (nil restores).
func (s *Store) FailProbe(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeErr = err
}

// Commits reports how many batches have committed. Test hook.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Len reports the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// QueryAll scans the full collection in stable id order.
func (s *Store) QueryAll(ctx context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, domain.Document{ID: id, Fields: cloneRecord(s.docs[id])})
	}
	return docs, nil
}

// Get fetches a single document by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return domain.Document{}, false, s.queryErr
	}
	fields, ok := s.docs[id]
	if !ok {
		return domain.Document{}, false, nil
	}
	return domain.Document{ID: id, Fields: cloneRecord(fields)}, true, nil
}

// Add creates a document under a fresh id.
func (s *Store) Add(ctx context.Context, fields domain.RawRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return "", s.writeErr
	}
	id := uuid.NewString()
	s.docs[id] = cloneRecord(fields)
	return id, nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, id string, fields domain.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	existing, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("piece %s not found", id)
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

// Delete removes a document by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.docs, id)
	return nil
}

// NewDocID mints a fresh document id.
func (s *Store) NewDocID() string { return uuid.NewString() }

// Probe reports the configured connectivity state.
func (s *Store) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeErr
}

func cloneRecord(rec domain.RawRecord) domain.RawRecord {
	out := make(domain.RawRecord, len(rec))
	for k, v := range rec {
		switch val := v.(type) {
		case domain.RawRecord:
			out[k] = cloneRecord(val)
		case []string:
			cp := make([]string, len(val))
			copy(cp, val)
			out[k] = cp
		case []any:
			cp := make([]any, len(val))
			copy(cp, val)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
