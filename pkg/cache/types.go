// Package cache implements the local block cache (C5): an on-disk,
// content-addressed store of wrapped blocks with a badger-backed size index
// for bounded, oldest-first eviction.
package cache

import (
	"errors"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Read when no block is cached under the given
// content address.
var ErrNotFound = errors.New("cache: block not found")

// Entry is one cached block's bookkeeping record, persisted in the index.
// Confirmed is false from the moment a block is cached until the upload
// queue reports it durably written to the remote store (or finds it already
// there via check_block); a crash between those two points leaves it false,
// which is exactly what the startup recovery scan looks for.
type Entry struct {
	HMAC      string // lowercase hex content address
	Size      int64
	CreatedAt int64 // unix nanoseconds
	Confirmed bool
}

// Cache is a content-addressed on-disk store of wrapped block bytes. The
// directory holds the block files themselves; db holds the size/creation-time
// index used for eviction accounting, keyed by the same hex HMAC.
type Cache struct {
	dir   string
	shard bool
	db    *badger.DB
}

// Config configures a Cache.
type Config struct {
	// Dir is the directory holding cached wrapped blocks.
	Dir string
	// Shard sharding cache filenames by their first hex nibble.
	Shard bool
}
