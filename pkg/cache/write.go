package cache

import (
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Write stores data under hexHMAC, atomically via write-to-temp-then-rename
// so a concurrent Read or an eviction pass never observes a partial file.
// Because the store is content-addressed, an existing entry under the same
// address is already byte-identical to data; Write is a no-op in that case.
func (c *Cache) Write(hexHMAC string, data []byte) error {
	has, err := c.Has(hexHMAC)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	path, err := c.path(hexHMAC)
	if err != nil {
		return secerr.New(secerr.KindIO, "cache_write", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return secerr.New(secerr.KindIO, "cache_write", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+hexHMAC+"-*")
	if err != nil {
		return secerr.New(secerr.KindIO, "cache_write", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return secerr.New(secerr.KindIO, "cache_write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return secerr.New(secerr.KindIO, "cache_write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return secerr.New(secerr.KindIO, "cache_write", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return secerr.New(secerr.KindIO, "cache_write", err)
	}

	entry := Entry{HMAC: hexHMAC, Size: int64(len(data)), CreatedAt: time.Now().UnixNano(), Confirmed: false}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey(hexHMAC), encodeEntry(entry))
	})
	if err != nil {
		return secerr.New(secerr.KindIO, "cache_write", err)
	}

	logger.Debug("cached block", "hmac", hexHMAC, "bytes", len(data))
	metrics.RecordCacheWrite(int64(len(data)))
	return nil
}

// Confirm marks a cached block as durably uploaded (or already present on
// the remote store), clearing it from the recovery scan's candidate set. A
// missing entry is not an error: Confirm may race a concurrent eviction.
func (c *Cache) Confirm(hexHMAC string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(hexHMAC))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry, err := decodeEntry(val)
		if err != nil {
			return err
		}
		if entry.Confirmed {
			return nil
		}
		entry.Confirmed = true
		return txn.Set(indexKey(hexHMAC), encodeEntry(entry))
	})
}

// ListUnconfirmed returns every cached block never confirmed uploaded, with
// HMAC populated from the index key. Used by the startup recovery scan.
func (c *Cache) ListUnconfirmed() ([]Entry, error) {
	var entries []Entry
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("entry:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			hexHMAC := item.Key()[len("entry:"):]
			err := item.Value(func(val []byte) error {
				e, err := decodeEntry(val)
				if err != nil {
					return err
				}
				if e.Confirmed {
					return nil
				}
				e.HMAC = string(hexHMAC)
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, secerr.New(secerr.KindIO, "cache_list_unconfirmed", err)
	}
	return entries, nil
}
