package session

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/block"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/cancel"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// RestoreOptions configures one restore operation.
type RestoreOptions struct {
	DestPath   string
	FolderID   string
	SessionID  string // cancellation-set key; typically the session name
	Name       string // session name as registered with the remote store

	Progress Progress
	Issue    Issue
}

// fetchRetryConfig mirrors the upload queue's backoff discipline for the
// restore path's block fetches, which hit the same remote store under the
// same failure modes.
var fetchRetryConfig = struct {
	maxRetries                int
	serviceUnavailableRetries int
}{maxRetries: 15, serviceUnavailableRetries: 3}

// Restore fetches and decrypts a sync session, then walks its tar manifest
// writing each file's content to destPath, fetching blocks from the local
// cache first and falling back to the remote store.
func Restore(ctx context.Context, store remote.Store, blockCache *cache.Cache, token remote.Token, k Keys, opts RestoreOptions) error {
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = func(uint64, uint64, uint64, float64, bool) {}
	}
	issue := opts.Issue
	if issue == nil {
		issue = func(string) {}
	}

	if err := os.MkdirAll(opts.DestPath, 0o755); err != nil {
		return secerr.New(secerr.KindIO, "restore", err).WithFolder(opts.DestPath)
	}

	lock, err := LockFolder(opts.DestPath)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	wire, err := store.ReadSession(ctx, token, opts.FolderID, opts.Name, true)
	if err != nil {
		return err
	}

	tarBytes, err := UnwrapSession(wire, k.Main)
	if err != nil {
		return err
	}

	tr := tar.NewReader(bytes.NewReader(tarBytes))

	var estimatedSize, processedSize uint64

	for {
		if cancel.IsCancelled(opts.SessionID) {
			issue(fmt.Sprintf("restore cancelled (%s)", opts.SessionID))
			return secerr.New(secerr.KindCancelled, "restore", nil).WithSession(opts.SessionID)
		}

		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return secerr.New(secerr.KindSessionUnreadable, "restore", err)
		}

		estimatedSize += uint64(header.Size)

		targetPath := filepath.Join(opts.DestPath, filepath.FromSlash(header.Name))

		percent := percentOf(processedSize, estimatedSize)
		progress(estimatedSize, processedSize, 0, percent, false)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, header.FileInfo().Mode().Perm()); err != nil {
				issue(fmt.Sprintf("failed to create directory %s: %s", targetPath, err))
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				issue(fmt.Sprintf("failed to create parent for %s: %s", targetPath, err))
				continue
			}
			if err := os.Symlink(header.Linkname, targetPath); err != nil && !os.IsExist(err) {
				issue(fmt.Sprintf("failed to restore symlink %s: %s", targetPath, err))
			}

		case tar.TypeLink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				issue(fmt.Sprintf("failed to create parent for %s: %s", targetPath, err))
				continue
			}
			linkTarget := filepath.Join(opts.DestPath, filepath.FromSlash(header.Linkname))
			if err := os.Link(linkTarget, targetPath); err != nil {
				issue(fmt.Sprintf("failed to restore hard link %s: %s", targetPath, err))
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				issue(fmt.Sprintf("failed to create parent for %s: %s", targetPath, err))
				continue
			}

			hmacBag := make([]byte, header.Size)
			if _, err := io.ReadFull(tr, hmacBag); err != nil {
				issue(fmt.Sprintf("failed to read manifest for %s: %s", targetPath, err))
				continue
			}

			delta, err := restoreFile(ctx, store, blockCache, token, k, opts, targetPath, hmacBag, &processedSize, estimatedSize, progress, issue)
			processedSize += delta
			if err != nil {
				return err
			}
			if err := os.Chmod(targetPath, header.FileInfo().Mode().Perm()); err != nil {
				logger.Debug("failed to restore file mode", "path", targetPath, "error", err)
			}

		default:
			// devices, sockets, fifos: nothing SafeDrive can meaningfully restore.
			issue(fmt.Sprintf("skipping unsupported entry %s", header.Name))
		}
	}

	progress(estimatedSize, processedSize, 0, 100.0, true)
	metrics.ObserveSessionRestore(opts.FolderID, time.Since(start))
	return nil
}

// restoreFile reassembles one regular file from its HMAC bag, writing
// plaintext bytes in block order.
func restoreFile(ctx context.Context, store remote.Store, blockCache *cache.Cache, token remote.Token, k Keys, opts RestoreOptions, targetPath string, hmacBag []byte, processedSize *uint64, estimatedSize uint64, progress Progress, issue Issue) (uint64, error) {
	hmacs, err := binformat.DecodeHMACBag(hmacBag)
	if err != nil {
		return 0, secerr.New(secerr.KindSessionUnreadable, "restore", err)
	}

	f, err := os.Create(targetPath)
	if err != nil {
		return 0, secerr.New(secerr.KindIO, "restore", err)
	}
	defer f.Close()

	var delta uint64
	for _, blockHMAC := range hmacs {
		if cancel.IsCancelled(opts.SessionID) {
			issue(fmt.Sprintf("restore cancelled (%s)", opts.SessionID))
			return delta, secerr.New(secerr.KindCancelled, "restore", nil).WithSession(opts.SessionID)
		}

		hexHMAC := fmt.Sprintf("%x", blockHMAC)

		wire, err := fetchBlock(ctx, store, blockCache, token, hexHMAC)
		if err != nil {
			return delta, err
		}

		decoded, err := block.DecodeBlock(wire, blockHMAC, k.Main)
		if err != nil {
			return delta, err
		}

		if _, err := f.Write(decoded.Data); err != nil {
			return delta, secerr.New(secerr.KindIO, "restore", err)
		}

		delta += uint64(len(decoded.Data))
		progress(estimatedSize, *processedSize+delta, uint64(len(decoded.Data)), percentOf(*processedSize+delta, estimatedSize), false)
	}

	return delta, nil
}

// fetchBlock tries the local cache first, falling back to the remote store
// with the same retry/backoff discipline as the write-through upload queue.
// A fetched block is written back into the cache so a later restore of the
// same content (another file, another session) is served locally.
func fetchBlock(ctx context.Context, store remote.Store, blockCache *cache.Cache, token remote.Token, hexHMAC string) ([]byte, error) {
	if blockCache != nil {
		if data, err := blockCache.Read(hexHMAC); err == nil {
			return data, nil
		} else if err != cache.ErrNotFound {
			logger.Debug("cache read failed, falling back to remote", "hmac", hexHMAC, "error", err)
		}
	}

	serviceUnavailableRetries := 0
	for attempt := 1; attempt <= fetchRetryConfig.maxRetries; attempt++ {
		data, err := store.ReadBlock(ctx, token, hexHMAC)
		if err == nil {
			if blockCache != nil {
				if werr := blockCache.Write(hexHMAC, data); werr != nil {
					logger.Debug("failed to cache fetched block", "hmac", hexHMAC, "error", werr)
				}
			}
			return data, nil
		}

		if secerr.Is(err, secerr.KindAuthentication) || secerr.Is(err, secerr.KindBlockMissing) {
			return nil, err
		}
		if secerr.Is(err, secerr.KindServiceUnavailable) {
			serviceUnavailableRetries++
			if serviceUnavailableRetries > fetchRetryConfig.serviceUnavailableRetries {
				return nil, secerr.NewExceededRetries("read_block", attempt).WithBlock(hexHMAC)
			}
		}

		if attempt == fetchRetryConfig.maxRetries {
			return nil, secerr.NewExceededRetries("read_block", attempt).WithBlock(hexHMAC)
		}

		time.Sleep(blockFetchBackoff(attempt))
	}
	return nil, secerr.NewExceededRetries("read_block", fetchRetryConfig.maxRetries).WithBlock(hexHMAC)
}

// blockFetchBackoff applies the engine-wide uniform(0, 1.5) * attempts²
// backoff to a failed block fetch.
func blockFetchBackoff(attempt int) time.Duration {
	seconds := rand.Float64() * 1.5 * float64(attempt*attempt)
	return time.Duration(seconds * float64(time.Second))
}
