// Package postgres implements the remote document store on a Postgres JSONB
// table. Documents keep their arbitrary field mappings intact; partial
// updates merge at the top level, matching the remote service contract the
// engine is written against.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"piececore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.RemoteStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/piececore?sslmode=disable"
	defaultTable  = "pieces"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a Postgres-backed document store.
type Store struct {
	db *sql.DB
}

// NewStore opens a store using the provided DSN (falls back to a local
// default), pings the server, and ensures the document table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		doc JSONB NOT NULL
	)`, defaultTable)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure %s table: %w", defaultTable, err)
	}
	return &Store{db: db}, nil
}

// QueryAll scans the full collection.
func (s *Store) QueryAll(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM pieces`)
	if err != nil {
		return nil, fmt.Errorf("select pieces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []domain.Document
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan piece: %w", err)
		}
		var fields domain.RawRecord
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("decode piece %s: %w", id, err)
		}
		docs = append(docs, domain.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pieces: %w", err)
	}
	return docs, nil
}

// Get fetches a single document by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Document, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM pieces WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("select piece: %w", err)
	}
	var fields domain.RawRecord
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.Document{}, false, fmt.Errorf("decode piece %s: %w", id, err)
	}
	return domain.Document{ID: id, Fields: fields}, true, nil
}

// Add creates a document under a fresh service-assigned id.
func (s *Store) Add(ctx context.Context, fields domain.RawRecord) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode piece: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO pieces(id, doc) VALUES($1, $2)`, id, payload); err != nil {
		return "", fmt.Errorf("insert piece: %w", err)
	}
	return id, nil
}

// Update merges fields into an existing document at the top level.
func (s *Store) Update(ctx context.Context, id string, fields domain.RawRecord) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode piece: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pieces SET doc = doc || $2::jsonb WHERE id = $1`, id, payload)
	if err != nil {
		return fmt.Errorf("update piece: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("piece %s not found", id)
	}
	return nil
}

// Delete removes a document by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pieces WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete piece: %w", err)
	}
	return nil
}

// NewDocID mints a fresh document id client-side.
func (s *Store) NewDocID() string { return uuid.NewString() }

// Probe runs a lightweight limited query to confirm reachability.
func (s *Store) Probe(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM pieces LIMIT 1`)
	if err != nil {
		return fmt.Errorf("probe pieces: %w", err)
	}
	return rows.Close()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
