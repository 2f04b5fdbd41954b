package cache

import (
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Read returns the raw wrapped-block bytes cached under hexHMAC, or
// ErrNotFound if no such block is cached. The caller (pkg/block) is
// responsible for parsing and decrypting the returned bytes.
func (c *Cache) Read(hexHMAC string) ([]byte, error) {
	start := time.Now()
	path, err := c.path(hexHMAC)
	if err != nil {
		return nil, secerr.New(secerr.KindIO, "cache_read", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		metrics.RecordCacheRead(false, time.Since(start))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, secerr.New(secerr.KindIO, "cache_read", err)
	}
	metrics.RecordCacheRead(true, time.Since(start))
	return data, nil
}

// Has reports whether a block is cached under hexHMAC, without reading its
// contents.
func (c *Cache) Has(hexHMAC string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(indexKey(hexHMAC))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, secerr.New(secerr.KindIO, "cache_has", err)
	}
	return true, nil
}
