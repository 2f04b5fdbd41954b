package cache

import (
	"os"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Evict deletes cached entries oldest-by-creation-time first until the
// cache's total accounted size is at or under limitBytes, returning the
// number of bytes freed. A file mid-write is never a candidate: it has no
// index entry until Write renames it into place.
func (c *Cache) Evict(limitBytes int64) (int64, error) {
	entries, total, err := c.listEntries()
	if err != nil {
		return 0, err
	}
	if total <= limitBytes {
		return 0, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt < entries[j].CreatedAt
	})

	var freed int64
	for _, e := range entries {
		if total-freed <= limitBytes {
			break
		}
		if err := c.delete(e.HMAC); err != nil {
			return freed, err
		}
		freed += e.Size
		metrics.RecordCacheEviction("size_limit")
	}

	logger.Info("cache eviction complete", "bytes_freed", freed, "limit", limitBytes)
	metrics.RecordCacheSize(total - freed)
	return freed, nil
}

// Clear removes every cached block and index entry, returning the number of
// bytes freed.
func (c *Cache) Clear() (int64, error) {
	entries, total, err := c.listEntries()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := c.delete(e.HMAC); err != nil {
			return 0, err
		}
		metrics.RecordCacheEviction("clear")
	}
	metrics.RecordCacheSize(0)
	return total, nil
}

// listEntries returns every index entry (with HMAC populated from the key)
// along with the sum of their sizes.
func (c *Cache) listEntries() ([]Entry, int64, error) {
	var entries []Entry
	var total int64

	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("entry:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			hexHMAC := strings.TrimPrefix(string(item.Key()), "entry:")
			err := item.Value(func(val []byte) error {
				e, err := decodeEntry(val)
				if err != nil {
					return err
				}
				e.HMAC = hexHMAC
				entries = append(entries, e)
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
		return nil, 0, secerr.New(secerr.KindIO, "cache_list", err)
	}
	return entries, total, nil
}

// delete removes both the block file and its index entry for hexHMAC.
func (c *Cache) delete(hexHMAC string) error {
	path, err := c.path(hexHMAC)
	if err != nil {
		return secerr.New(secerr.KindIO, "cache_delete", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return secerr.New(secerr.KindIO, "cache_delete", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(indexKey(hexHMAC))
	})
	if err != nil {
		return secerr.New(secerr.KindIO, "cache_delete", err)
	}
	return nil
}
