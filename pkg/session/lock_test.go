package session

import (
	"testing"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

func TestLockFolderSucceedsThenConflicts(t *testing.T) {
	dir := t.TempDir()

	lock, err := LockFolder(dir)
	if err != nil {
		t.Fatalf("LockFolder: %v", err)
	}

	if _, err := LockFolder(dir); !secerr.Is(err, secerr.KindSyncAlreadyInProgress) {
		t.Fatalf("expected KindSyncAlreadyInProgress, got %v", err)
	}

	lock.Unlock()

	if lock2, err := LockFolder(dir); err != nil {
		t.Fatalf("LockFolder after unlock: %v", err)
	} else {
		lock2.Unlock()
	}
}

func TestFolderLockUnlockIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := LockFolder(dir)
	if err != nil {
		t.Fatalf("LockFolder: %v", err)
	}

	lock.Unlock()
	lock.Unlock() // must not panic or error on a missing lock file

	var nilLock *FolderLock
	nilLock.Unlock() // must tolerate a nil receiver
}
