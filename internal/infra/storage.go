// Package infra selects concrete storage drivers from process environment.
package infra

import (
	"context"
	"fmt"
	"os"

	kvmemory "piececore/internal/infra/kv/memory"
	kvsqlite "piececore/internal/infra/kv/sqlite"
	remotememory "piececore/internal/infra/remote/memory"
	remotepostgres "piececore/internal/infra/remote/postgres"
	settingsfs "piececore/internal/infra/settings/fs"
	settingsmemory "piececore/internal/infra/settings/memory"
	"piececore/pkg/domain"
)

// Driver names accepted by the storage factories.
const (
	KVSQLite     = "sqlite"
	KVMemory     = "memory"
	RemotePG     = "postgres"
	RemoteMemory = "memory"
)

// OpenKeyValueStore selects the local persistent store driver.
//
// Environment variables:
//
//	PIECECORE_KV_DRIVER: sqlite|memory (default sqlite)
//	PIECECORE_KV_SQLITE_PATH: path to sqlite file (default ./piececore.db)
func OpenKeyValueStore() (domain.KeyValueStore, error) {
	driver := os.Getenv("PIECECORE_KV_DRIVER")
	if driver == "" {
		driver = KVSQLite
	}
	switch driver {
	case KVMemory:
		return kvmemory.NewStore(), nil
	case KVSQLite:
		return kvsqlite.NewStore(os.Getenv("PIECECORE_KV_SQLITE_PATH"))
	default:
		return nil, fmt.Errorf("unknown kv driver %s", driver)
	}
}

// OpenRemoteStore selects the remote document store driver.
//
// Environment variables:
//
//	PIECECORE_REMOTE_DRIVER: postgres|memory (default postgres)
//	PIECECORE_REMOTE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenRemoteStore(ctx context.Context) (domain.RemoteStore, error) {
	driver := os.Getenv("PIECECORE_REMOTE_DRIVER")
	if driver == "" {
		driver = RemotePG
	}
	switch driver {
	case RemoteMemory:
		return remotememory.NewStore(), nil
	case RemotePG:
		return remotepostgres.NewStore(ctx, os.Getenv("PIECECORE_REMOTE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown remote driver %s", driver)
	}
}

// OpenSettingsStore selects the simple synchronous settings store.
//
// Environment variables:
//
//	PIECECORE_SETTINGS_DRIVER: fs|memory (default fs)
//	PIECECORE_SETTINGS_ROOT: directory for the fs driver
//	  (default ./piececore-settings)
func OpenSettingsStore() (domain.SettingsStore, error) {
	driver := os.Getenv("PIECECORE_SETTINGS_DRIVER")
	if driver == "" {
		driver = "fs"
	}
	switch driver {
	case "memory":
		return settingsmemory.NewStore(), nil
	case "fs":
		return settingsfs.NewStore(os.Getenv("PIECECORE_SETTINGS_ROOT"))
	default:
		return nil, fmt.Errorf("unknown settings driver %s", driver)
	}
}
