// Package fallback keeps a small synchronous mirror of the piece collection
// in the simple storage collaborator. The mirror is updated immediately
// after every successful remote mutation, before the asynchronous cache
// invalidation, so a read issued right after a write sees current data even
// while the snapshot cache is still draining.
package fallback

import (
	"encoding/json"

	"piececore/internal/normalize"
	"piececore/pkg/domain"
)

// Key is the fixed storage key for the mirror.
const Key = "pieces"

// Store mirrors the piece collection. All operations are synchronous and
// best-effort: reads never fail (an unparsable mirror reads as empty) and
// write failures are swallowed.
type Store struct {
	settings domain.SettingsStore
	logger   domain.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger wires a logger for swallowed-failure warnings.
func WithLogger(l domain.Logger) Option { return func(s *Store) { s.logger = l } }

// New builds a fallback store over the given settings storage.
func New(settings domain.SettingsStore, opts ...Option) *Store {
	s := &Store{settings: settings, logger: domain.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pieces loads the mirror. Every stored record passes through the field
// normalizer on the way out, so historically-stored shapes still conform to
// the current canonical schema. Never fails: parse errors yield an empty
// collection.
func (s *Store) Pieces() []domain.Piece {
	raw, ok := s.settings.GetItem(Key)
	if !ok || raw == "" {
		return []domain.Piece{}
	}
	var records []domain.RawRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn("fallback mirror unparsable", "error", err)
		return []domain.Piece{}
	}
	pieces := make([]domain.Piece, 0, len(records))
	for _, rec := range records {
		canonical := normalize.HolderName(normalize.Record(rec))
		pieces = append(pieces, domain.PieceFromRecord(canonical))
	}
	return pieces
}

// Save replaces the mirror. Best-effort: failures are logged and swallowed.
func (s *Store) Save(pieces []domain.Piece) {
	if pieces == nil {
		pieces = []domain.Piece{}
	}
	payload, err := json.Marshal(pieces)
	if err != nil {
		s.logger.Warn("fallback mirror encode failed", "error", err)
		return
	}
	if err := s.settings.SetItem(Key, string(payload)); err != nil {
		s.logger.Warn("fallback mirror write failed", "error", err)
	}
}

// Clear empties the mirror.
func (s *Store) Clear() {
	s.Save([]domain.Piece{})
}
