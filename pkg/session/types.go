// Package session implements the session builder/restorer (C7): it walks a
// local folder into a tar-based manifest whose entries carry ordered
// block-HMAC lists, drives the chunk→block→upload pipeline for file
// contents, and wraps/uploads the finished manifest as one sync session.
// Restore reverses the process, fetching blocks through the local cache
// before falling back to the remote store.
package session

import (
	"time"

	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/block"
	"github.com/safedrive/safedrive-engine/pkg/keys"
)

// Keys bundles the working key material a sync or restore needs. It never
// includes the Master or Recovery keys, which have no role beyond
// protecting Keyset.Main/HMAC/Tweak at rest.
type Keys struct {
	Main  keys.Key
	HMAC  keys.Key
	Tweak keys.Key
}

// Progress is invoked periodically during sync/restore with running
// totals. It executes on the calling goroutine and must not re-enter the
// engine.
type Progress func(estimated, processed, lastDelta uint64, percent float64, done bool)

// Issue reports a non-fatal, per-entry problem; the operation continues.
type Issue func(message string)

// BuildOptions configures one sync operation.
type BuildOptions struct {
	FolderPath string
	FolderID   string
	Name       string // session name (UUIDv4); caller-generated so it can be logged before the call
	Version    binformat.Version
	Channel    block.Channel
	Production bool

	Progress Progress
	Issue    Issue
}

// Metadata is a session's non-secret bookkeeping, as listed by the remote
// store and used by the retention engine.
type Metadata struct {
	ID       string
	FolderID string
	Name     string
	Size     uint64
	Time     time.Time
}
