//go:build !windows

package session

import (
	"os"
	"syscall"
)

// hardLinkKey extracts the (device, inode) pair identifying a regular
// file's underlying content, so a second path referencing the same inode
// can be archived as a TypeLink entry instead of duplicating the chunk and
// block work. ok is false when the file has only one link, since there's
// nothing to dedup against.
func hardLinkKey(md os.FileInfo) (inodeKey, bool) {
	stat, ok := md.Sys().(*syscall.Stat_t)
	if !ok || stat.Nlink < 2 {
		return inodeKey{}, false
	}
	return inodeKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}
