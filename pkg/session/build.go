package session

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/block"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/cancel"
	"github.com/safedrive/safedrive-engine/pkg/chunk"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
	"github.com/safedrive/safedrive-engine/pkg/upload"
)

// inodeKey identifies a file on one device by (device, inode), the pair
// that's actually unique for hard-link detection; the inode alone can
// collide across filesystems.
type inodeKey struct {
	dev, ino uint64
}

// Build walks opts.FolderPath, chunks and encrypts its file contents,
// uploads the resulting blocks through queue, and finishes the wrapped
// session on store. It is the implementation of the engine's sync
// operation.
func Build(ctx context.Context, store remote.Store, blockCache *cache.Cache, uploadCfg upload.Config, token remote.Token, k Keys, opts BuildOptions) (Metadata, error) {
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = func(uint64, uint64, uint64, float64, bool) {}
	}
	issue := opts.Issue
	if issue == nil {
		issue = func(string) {}
	}

	logger.Debug("creating sync session", "folder", opts.FolderPath, "session", opts.Name)

	info, err := os.Stat(opts.FolderPath)
	if err != nil || !info.IsDir() {
		return Metadata{}, secerr.New(secerr.KindFolderMissing, "sync", err).WithFolder(opts.FolderPath)
	}

	lock, err := LockFolder(opts.FolderPath)
	if err != nil {
		return Metadata{}, err
	}
	defer lock.Unlock()

	if err := store.RegisterSession(ctx, token, opts.FolderID, opts.Name, true); err != nil {
		return Metadata{}, err
	}

	estimatedSize, err := estimateSize(opts.FolderPath, issue)
	if err != nil {
		return Metadata{}, err
	}

	queue := upload.New(ctx, store, token, opts.Name, uploadCfg, blockCache)

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	var processedSize uint64
	failed := 0
	seenLinks := make(map[inodeKey]string)

	walkErr := filepath.WalkDir(opts.FolderPath, func(fullPath string, d os.DirEntry, err error) error {
		if cancel.IsCancelled(opts.Name) {
			issue(fmt.Sprintf("sync cancelled (%s)", opts.Name))
			queue.Cancel()
			return cancelledErr(opts.Name)
		}
		if err != nil {
			issue(fmt.Sprintf("not able to sync file %s: %s", fullPath, err))
			failed++
			return nil
		}
		if fullPath == opts.FolderPath {
			return nil
		}

		percent := percentOf(processedSize, estimatedSize)
		progress(estimatedSize, processedSize, 0, percent, false)

		relPath, err := filepath.Rel(opts.FolderPath, fullPath)
		if err != nil {
			failed++
			return nil
		}

		md, err := os.Lstat(fullPath)
		if err != nil {
			failed++
			return nil
		}

		header, err := tar.FileInfoHeader(md, "")
		if err != nil {
			issue(fmt.Sprintf("not able to sync file %s: %s", fullPath, err))
			failed++
			return nil
		}
		header.Name = filepath.ToSlash(relPath)

		switch {
		case md.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(fullPath)
			if err != nil {
				issue(fmt.Sprintf("failed to set symlink for %s: %s", fullPath, err))
			} else {
				header.Linkname = target
			}
			header.Size = 0
			return writeEntryHeader(tw, header)

		case md.IsDir():
			header.Size = 0
			return writeEntryHeader(tw, header)

		case md.Mode().IsRegular():
			if key, ok := hardLinkKey(md); ok {
				if firstPath, already := seenLinks[key]; already {
					header.Typeflag = tar.TypeLink
					header.Linkname = filepath.ToSlash(firstPath)
					header.Size = 0
					return writeEntryHeader(tw, header)
				}
				seenLinks[key] = header.Name
			}

			streamLength := md.Size()
			if streamLength == 0 {
				header.Size = 0
				return writeEntryHeader(tw, header)
			}

			hmacBag, delta, blockFailed, err := chunkFile(ctx, fullPath, k, opts, queue, blockCache, &processedSize, estimatedSize, percent, progress, issue)
			processedSize += delta
			if err != nil {
				return err
			}
			if blockFailed {
				issue(fmt.Sprintf("not able to sync file %s: could not read from file", fullPath))
				failed++
				return nil
			}

			header.Size = int64(len(hmacBag))
			if err := writeEntryHeader(tw, header); err != nil {
				return err
			}
			_, err = tw.Write(hmacBag)
			return err

		default:
			// socket, device, fifo: not file content SafeDrive can chunk, skip silently.
			return nil
		}
	})

	if walkErr != nil {
		return Metadata{}, walkErr
	}

	if err := tw.Close(); err != nil {
		return Metadata{}, secerr.New(secerr.KindIO, "sync", err).WithFolder(opts.FolderPath)
	}

	logger.Debug("signaling write cache we're finished", "session", opts.Name)
	status := queue.Finish()
	if status.Err != nil {
		return Metadata{}, status.Err
	}

	wire, err := WrapSession(tarBuf.Bytes(), opts.Version, block.Options{Channel: opts.Channel, Production: opts.Production}, k.Main)
	if err != nil {
		return Metadata{}, err
	}

	progress(estimatedSize, processedSize, 0, percentOf(processedSize, estimatedSize), false)

	if err := store.FinishSession(ctx, token, opts.FolderID, int64(processedSize), wire, true); err != nil {
		issue(fmt.Sprintf("not able to finish sync: %s", err))
		return Metadata{}, err
	}

	progress(estimatedSize, processedSize, 0, 100.0, false)

	if blockCache != nil {
		logger.Debug("sync complete, cache size", "bytes", mustCacheSize(blockCache))
	}
	if failed > 0 {
		logger.Info("sync completed with entry failures", "session", opts.Name, "failed", failed)
	}

	metrics.ObserveSessionBuild(opts.FolderID, time.Since(start), int64(processedSize))

	return Metadata{FolderID: opts.FolderID, Name: opts.Name, Size: processedSize}, nil
}

// estimateSize sums the apparent size of every regular file under root, for
// progress percentage reporting. Entries that can't be stat'd are reported
// via issue and skipped, matching the tolerant behavior of the main walk.
func estimateSize(root string, issue Issue) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			issue(fmt.Sprintf("not able to sync file %s: %s", path, err))
			return nil
		}
		md, err := os.Lstat(path)
		if err != nil {
			issue(fmt.Sprintf("not able to sync file %s: %s", path, err))
			return nil
		}
		if md.Mode().IsRegular() {
			total += uint64(md.Size())
		}
		return nil
	})
	return total, err
}

// chunkFile streams one regular file through the chunker and block pipeline,
// sending each wrapped block to queue and accumulating the file's HMAC bag.
func chunkFile(ctx context.Context, fullPath string, k Keys, opts BuildOptions, queue *upload.Queue, blockCache *cache.Cache, processedSize *uint64, estimatedSize uint64, percent float64, progress Progress, issue Issue) (hmacBag []byte, delta uint64, blockFailed bool, err error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, 0, true, nil
	}
	defer f.Close()

	chunkVersion := chunk.Version(opts.Version)
	chunker := chunk.New(f, k.Tweak.Bytes(), chunkVersion)

	blockOpts := block.Options{Channel: opts.Channel, Production: opts.Production}

	for {
		if cancel.IsCancelled(opts.Name) {
			issue(fmt.Sprintf("sync cancelled (%s)", opts.Name))
			queue.Cancel()
			return hmacBag, delta, false, cancelledErr(opts.Name)
		}

		c, cerr := chunker.Next()
		if cerr == io.EOF {
			break
		}
		if cerr != nil {
			return hmacBag, delta, true, nil
		}

		wire, blockHMAC, eerr := block.EncodeBlock(c.Data, opts.Version, blockOpts, k.HMAC, k.Main)
		if eerr != nil {
			return hmacBag, delta, false, eerr
		}

		hmacBag = append(hmacBag, blockHMAC...)
		delta += uint64(len(c.Data))

		progress(estimatedSize, *processedSize+delta, uint64(len(c.Data)), percent, false)

		hexHMAC := fmt.Sprintf("%x", blockHMAC)
		if blockCache != nil {
			if cerr := blockCache.Write(hexHMAC, wire); cerr != nil {
				issue(fmt.Sprintf("failed to cache block %s: %s", hexHMAC, cerr))
			}
		}
		queue.Send(remote.BlockUpload{HMACHex: hexHMAC, Data: wire})
	}

	return hmacBag, delta, false, nil
}

func writeEntryHeader(tw *tar.Writer, header *tar.Header) error {
	if err := tw.WriteHeader(header); err != nil {
		return secerr.New(secerr.KindIO, "sync", err)
	}
	return nil
}

func percentOf(processed, estimated uint64) float64 {
	if estimated == 0 {
		return 0
	}
	return (float64(processed) / float64(estimated)) * 100.0
}

func cancelledErr(session string) error {
	return secerr.New(secerr.KindCancelled, "sync", nil).WithSession(session)
}

func mustCacheSize(c *cache.Cache) int64 {
	n, err := c.Size()
	if err != nil {
		return -1
	}
	return n
}
