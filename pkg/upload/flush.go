package upload

import (
	"context"
	"errors"
	"time"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/cancel"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// retryKind extracts the secerr.Kind driving a retry, for labeling the
// upload_retries metric. Errors that aren't a *secerr.Error (which shouldn't
// happen on this path) report as KindInternal.
func retryKind(err error) secerr.Kind {
	var se *secerr.Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return secerr.KindInternal
}

// flushBatch filters batch against the remote store's check_block, uploads
// whatever survives, and retries the whole batch on a recoverable failure
// per the engine's backoff discipline. blockCache may be nil; when set,
// every block this call confirms as durably stored (deduped or uploaded) is
// marked confirmed in the cache index.
func flushBatch(ctx context.Context, store remote.Store, token remote.Token, session string, batch []remote.BlockUpload, cfg Config, blockCache *cache.Cache) error {
	toUpload, deduped, err := filterExisting(ctx, store, token, batch)
	if err != nil {
		return err
	}
	confirmHexes(blockCache, deduped)
	if len(toUpload) == 0 {
		return nil
	}

	serviceUnavailableRetries := 0
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if cancel.IsCancelled(session) {
			return secerr.New(secerr.KindCancelled, "upload_flush", nil).WithSession(session)
		}

		missing, err := store.WriteBlocks(ctx, token, session, toUpload)
		if err == nil && len(missing) == 0 {
			for _, b := range toUpload {
				metrics.RecordBlockUploaded(int64(len(b.Data)))
			}
			confirmBlocks(blockCache, toUpload)
			return nil
		}
		if err == nil {
			// Some blocks reported missing even though the call itself
			// succeeded; retry just those.
			toUpload = filterByHMAC(toUpload, missing)
			if len(toUpload) == 0 {
				return nil
			}
			err = secerr.New(secerr.KindRequestFailure, "write_blocks", nil).WithSession(session)
		}

		if secerr.Is(err, secerr.KindAuthentication) {
			return err
		}

		if secerr.Is(err, secerr.KindServiceUnavailable) {
			serviceUnavailableRetries++
			if serviceUnavailableRetries > cfg.ServiceUnavailableRetries {
				return secerr.NewExceededRetries("upload_flush", attempt).WithSession(session)
			}
		}

		if attempt == cfg.MaxRetries {
			return secerr.NewExceededRetries("upload_flush", attempt).WithSession(session)
		}

		delay := backoff(attempt)
		logger.Debug("upload batch retry", "session", session, "attempt", attempt, "delay", delay, "error", err)
		metrics.RecordUploadRetry(retryKind(err).String())
		sleep(ctx, delay)
	}
	return nil
}

// filterExisting drops blocks the remote store already has, per block, via
// check_block, and reports their hex addresses as deduped so the caller can
// mark them confirmed. A block already present is dedup, not an error.
func filterExisting(ctx context.Context, store remote.Store, token remote.Token, batch []remote.BlockUpload) (toUpload []remote.BlockUpload, deduped []string, err error) {
	for _, b := range batch {
		exists, err := store.CheckBlock(ctx, token, b.HMACHex)
		if err != nil {
			return nil, nil, err
		}
		if !exists {
			toUpload = append(toUpload, b)
			continue
		}
		deduped = append(deduped, b.HMACHex)
		metrics.RecordBlockDeduped()
	}
	return toUpload, deduped, nil
}

// confirmBlocks marks each block as confirmed in blockCache, tolerating a
// nil cache (the common case when a caller doesn't keep one).
func confirmBlocks(blockCache *cache.Cache, blocks []remote.BlockUpload) {
	if blockCache == nil {
		return
	}
	for _, b := range blocks {
		if err := blockCache.Confirm(b.HMACHex); err != nil {
			logger.Debug("upload: failed to mark block confirmed", "hmac", b.HMACHex, "error", err)
		}
	}
}

// confirmHexes is confirmBlocks for callers that only have hex addresses.
func confirmHexes(blockCache *cache.Cache, hexes []string) {
	if blockCache == nil {
		return
	}
	for _, h := range hexes {
		if err := blockCache.Confirm(h); err != nil {
			logger.Debug("upload: failed to mark block confirmed", "hmac", h, "error", err)
		}
	}
}

func filterByHMAC(blocks []remote.BlockUpload, missingHex []string) []remote.BlockUpload {
	want := make(map[string]struct{}, len(missingHex))
	for _, h := range missingHex {
		want[h] = struct{}{}
	}
	var out []remote.BlockUpload
	for _, b := range blocks {
		if _, ok := want[b.HMACHex]; ok {
			out = append(out, b)
		}
	}
	return out
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
