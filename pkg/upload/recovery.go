package upload

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/remote"
)

// Recover scans blockCache for blocks cached but never confirmed uploaded —
// the signature of a crash between Write and the upload queue's flush — and
// re-sends each one with bounded parallelism. Safe to call with nothing
// pending: it returns quickly. Call before any new sync begins.
func Recover(ctx context.Context, store remote.Store, token remote.Token, blockCache *cache.Cache, cfg Config) (*RecoveryStats, error) {
	if blockCache == nil {
		return nil, fmt.Errorf("upload: recovery requires a block cache")
	}

	stats := &RecoveryStats{}

	pending, err := blockCache.ListUnconfirmed()
	if err != nil {
		return nil, err
	}
	stats.BlocksFound = len(pending)

	if len(pending) == 0 {
		logger.Info("recovery: no unconfirmed blocks found")
		return stats, nil
	}

	logger.Info("recovery: scanning unconfirmed blocks", "count", len(pending))

	parallel := cfg.RecoveryParallelism
	if parallel <= 0 {
		parallel = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)
	var uploaded, failed, bytesUploaded int64

	for _, entry := range pending {
		wg.Add(1)
		sem <- struct{}{}

		go func(e cache.Entry) {
			defer func() {
				<-sem
				wg.Done()
			}()

			data, err := blockCache.Read(e.HMAC)
			if err != nil {
				logger.Error("recovery: failed to read cached block", "hmac", e.HMAC, "error", err)
				atomic.AddInt64(&failed, 1)
				return
			}

			block := []remote.BlockUpload{{HMACHex: e.HMAC, Data: data}}
			if err := flushBatch(ctx, store, token, "recovery", block, cfg, blockCache); err != nil {
				logger.Error("recovery: failed to upload block", "hmac", e.HMAC, "error", err)
				atomic.AddInt64(&failed, 1)
				return
			}

			atomic.AddInt64(&uploaded, 1)
			atomic.AddInt64(&bytesUploaded, e.Size)
			logger.Debug("recovery: uploaded block", "hmac", e.HMAC, "bytes", e.Size)
		}(entry)
	}
	wg.Wait()

	stats.BlocksUploaded = int(uploaded)
	stats.BlocksFailed = int(failed)
	stats.BytesUploaded = bytesUploaded

	logger.Info("recovery: completed",
		"found", stats.BlocksFound,
		"uploaded", stats.BlocksUploaded,
		"failed", stats.BlocksFailed,
		"bytes", stats.BytesUploaded)

	if stats.BlocksFailed > 0 {
		return stats, fmt.Errorf("upload: recovery failed for %d block(s)", stats.BlocksFailed)
	}
	return stats, nil
}
