//go:build windows

package session

import "os"

// hardLinkKey is a no-op on Windows: NTFS hard links exist, but the syscall
// surface to detect them cheaply during a directory walk isn't worth the
// platform-specific complexity here, so every file is archived as its own
// regular entry instead of being deduplicated against an earlier hard link.
func hardLinkKey(md os.FileInfo) (inodeKey, bool) {
	return inodeKey{}, false
}
