package domain

import (
	"context"
	"errors"
)

// RemoteBatchLimit bounds the number of write operations the remote service
// accepts inside one atomic batch.
const RemoteBatchLimit = 500

// ErrOffline is returned by mutating engine operations attempted without
// connectivity. There is no offline write queue: callers retry when online.
var ErrOffline = errors.New("offline: mutation requires connectivity")

// Document is a remote record: the service-assigned identity plus the stored
// field mapping.
type Document struct {
	ID     string
	Fields RawRecord
}

// RemoteStore is the external document-store collaborator. Implementations
// own their consistency model; piececore treats writes as last-write-wins.
type RemoteStore interface {
	// QueryAll scans the full piece collection.
	QueryAll(ctx context.Context) ([]Document, error)
	// Get fetches a single document. The boolean reports existence.
	Get(ctx context.Context, id string) (Document, bool, error)
	// Add creates a document with a service-assigned id.
	Add(ctx context.Context, fields RawRecord) (string, error)
	// Update merges the given fields into an existing document.
	Update(ctx context.Context, id string, fields RawRecord) error
	// Delete removes a document by id.
	Delete(ctx context.Context, id string) error
	// NewBatch starts an atomic write batch bounded by RemoteBatchLimit.
	NewBatch() RemoteBatch
	// NewDocID mints a fresh document id client-side, for batched creates.
	NewDocID() string
	// Probe is a lightweight connectivity check (limited query).
	Probe(ctx context.Context) error
}

// RemoteBatch accumulates create/update/delete operations and commits them
// as one atomic unit. A committed batch is durable independently of any
// later batch.
type RemoteBatch interface {
	// Set writes a full document under the given id, creating it if absent.
	Set(id string, fields RawRecord)
	// Update merges fields into an existing document.
	Update(id string, fields RawRecord)
	// Delete removes a document.
	Delete(id string)
	// Len reports the number of accumulated operations.
	Len() int
	// Commit applies the batch and resets it for reuse.
	Commit(ctx context.Context) error
}

// KeyValueStore is the richer local persistent store. Operations are
// asynchronous and may be slow or failing; callers route access through the
// operation queue.
type KeyValueStore interface {
	// GetItem fetches a value. The boolean reports presence.
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// SettingsStore is the simple synchronous storage collaborator, bounded by a
// small practical size limit. It backs the fallback mirror and a few scalar
// settings, never bulk data.
type SettingsStore interface {
	// GetItem returns the stored string. The boolean reports presence.
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string)
}

// ConnectivityChecker reports whether the remote service is reachable. The
// engine samples it synchronously at call time and never caches the answer.
type ConnectivityChecker interface {
	Online() bool
}

// ConnectivityFunc adapts a function to the ConnectivityChecker interface.
type ConnectivityFunc func() bool

// Online implements ConnectivityChecker.
func (f ConnectivityFunc) Online() bool { return f() }

// AlwaysOnline is the default checker for deployments without a probe.
var AlwaysOnline = ConnectivityFunc(func() bool { return true })
