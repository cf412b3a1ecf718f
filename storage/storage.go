// Package storage persists the chat client's named slots: the API key,
// settings, theme, chat history and preferences. Values are opaque JSON.
//
// Store is the raw key/value abstraction, with MemoryStore and SQLiteStore
// (pure-Go SQLite via modernc.org/sqlite) as implementations. Slots maps
// the fixed slot names onto configured keys and reports failures as
// booleans, logging the cause.
package storage

import (
	"context"
	"fmt"

	"github.com/teilomillet/chatline/config"
)

// Store is a raw key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the store.
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
