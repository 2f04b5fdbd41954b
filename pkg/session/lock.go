package session

import (
	"os"
	"path/filepath"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

const lockFileName = ".sdlock"

// FolderLock is an advisory lock over a folder root, held for the duration
// of one sync or restore. It is released by calling Unlock, and must be
// released on every exit path including cancellation.
type FolderLock struct {
	path string
}

// LockFolder acquires the advisory lock at <folder>/.sdlock, failing with
// KindSyncAlreadyInProgress if another operation already holds it.
//
// The lock file is created with O_EXCL so two processes racing to create it
// can't both believe they won; the caller asking first wins.
func LockFolder(folderPath string) (*FolderLock, error) {
	path := filepath.Join(folderPath, lockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, secerr.New(secerr.KindSyncAlreadyInProgress, "lock_folder", err).WithFolder(folderPath)
		}
		return nil, secerr.New(secerr.KindIO, "lock_folder", err).WithFolder(folderPath)
	}
	f.Close()

	logger.Debug("acquired folder lock", "path", path)
	return &FolderLock{path: path}, nil
}

// Unlock releases the lock. It is safe to call more than once; a missing
// lock file (already removed, or never successfully created) is not an
// error, since there is nothing more the caller can do about it either way.
func (l *FolderLock) Unlock() {
	if l == nil {
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logger.Debug("couldn't drop folder lock", "path", l.path, "error", err)
		return
	}
	logger.Debug("released folder lock", "path", l.path)
}
