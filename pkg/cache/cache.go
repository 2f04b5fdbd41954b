package cache

import (
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Open creates or opens a Cache rooted at cfg.Dir, along with its badger
// index (stored under a "index" subdirectory so it never collides with a
// sharded block filename).
func Open(cfg Config) (*Cache, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, secerr.New(secerr.KindIO, "cache_open", err)
	}

	indexDir := filepath.Join(cfg.Dir, "index")
	opts := badger.DefaultOptions(indexDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, secerr.New(secerr.KindIO, "cache_open", err)
	}

	return &Cache{dir: cfg.Dir, shard: cfg.Shard, db: db}, nil
}

// Close releases the underlying index handle. It does not touch cached
// block files.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return secerr.New(secerr.KindIO, "cache_close", err)
	}
	return nil
}

// path returns the on-disk path for a block's hex HMAC, applying the
// configured first-nibble sharding.
func (c *Cache) path(hexHMAC string) (string, error) {
	if len(hexHMAC) == 0 {
		return "", fmt.Errorf("cache: empty content address")
	}
	if !c.shard {
		return filepath.Join(c.dir, hexHMAC), nil
	}
	return filepath.Join(c.dir, hexHMAC[:1], hexHMAC), nil
}

func indexKey(hexHMAC string) []byte {
	return []byte("entry:" + hexHMAC)
}

// Size returns the cache's total accounted size across all index entries.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("entry:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				e, err := decodeEntry(val)
				if err != nil {
					return err
				}
				total += e.Size
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, secerr.New(secerr.KindIO, "cache_size", err)
	}
	return total, nil
}
