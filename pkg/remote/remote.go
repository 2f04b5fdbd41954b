// Package remote defines the contract between the engine and whatever
// backing store holds accounts, folders, sessions, and blocks. The HTTP/JSON
// wire protocol the hosted service speaks is out of scope; this package only
// fixes the Go-level function surface every transport must implement.
package remote

import (
	"context"
	"time"
)

// Token authenticates every call below except RegisterClient, ListClients
// and ReportError.
type Token string

// ClientInfo describes one registered client under an account.
type ClientInfo struct {
	UCID string
	OS   string
	Lang string
}

// AccountStatus is the point-in-time state of an account's sync service.
type AccountStatus struct {
	State string
	Host  string
	Port  int
	User  string
	Time  *time.Time
}

// AccountDetails describes storage usage and plan limits.
type AccountDetails struct {
	Assigned      int64
	Used          int64
	LowThreshold  int64
	Expires       time.Time
	Notifications []string
}

// Folder describes one folder registered for sync.
type Folder struct {
	ID        string
	Name      string
	Path      string
	Added     time.Time
	Encrypted bool
	Syncing   bool
}

// SessionInfo describes one completed sync session.
type SessionInfo struct {
	ID   string
	Name string
	Size int64
	Time time.Time
}

// BlockUpload pairs one wrapped block's wire bytes with the content address
// it was produced under, since the wire bytes themselves never embed the
// HMAC (see pkg/block).
type BlockUpload struct {
	HMACHex string
	Data    []byte
}

// Store is the remote store contract. Every method takes a context so
// transports can honor cancellation and deadlines; every method that can
// fail returns an error whose Kind (via pkg/secerr) identifies whether the
// caller should retry, abort, or surface the failure to the user.
type Store interface {
	RegisterClient(ctx context.Context, os, lang, ucid, email, password string) (Token, error)
	UnregisterClient(ctx context.Context, token Token) error
	ListClients(ctx context.Context, email, password string) ([]ClientInfo, error)

	AccountStatus(ctx context.Context, token Token) (AccountStatus, error)
	AccountDetails(ctx context.Context, token Token) (AccountDetails, error)
	// AccountKey returns the server-held wrapped keyset (as opaque hex blobs
	// keyed by key name) when one already exists; otherwise it stores and
	// returns the supplied one atomically. The caller always adopts the
	// returned value.
	AccountKey(ctx context.Context, token Token, wrappedKeyset map[string]string) (map[string]string, error)

	ListFolders(ctx context.Context, token Token) ([]Folder, error)
	CreateFolder(ctx context.Context, token Token, path, name string, encrypted bool) (string, error)
	UpdateFolder(ctx context.Context, token Token, path, name string, syncing bool, id string) error
	DeleteFolder(ctx context.Context, token Token, id string) error

	RegisterSession(ctx context.Context, token Token, folderID, name string, encrypted bool) error
	// FinishSession commits a completed session's wrapped bytes under a
	// name, after every block referenced from it has been accepted
	// (write_blocks returned no missing HMACs for it).
	FinishSession(ctx context.Context, token Token, folderID string, size int64, wrappedSession []byte, encrypted bool) error
	ReadSession(ctx context.Context, token Token, folderID, name string, encrypted bool) ([]byte, error)
	ListSessions(ctx context.Context, token Token) (map[string][]SessionInfo, error)
	DeleteSession(ctx context.Context, token Token, id string) error
	DeleteSessionsBefore(ctx context.Context, token Token, beforeUnixMillis int64) error

	// CheckBlock reports whether a block is already stored remotely, by its
	// lowercase-hex content address.
	CheckBlock(ctx context.Context, token Token, hmacHex string) (bool, error)
	// WriteBlocks uploads a batch of already-wire-encoded wrapped blocks and
	// returns the hex HMACs of any the server still considers missing (e.g.
	// one failed mid-batch); a non-empty result is not itself an error.
	WriteBlocks(ctx context.Context, token Token, session string, blocks []BlockUpload) ([]string, error)
	ReadBlock(ctx context.Context, token Token, hmacHex string) ([]byte, error)

	ReportError(ctx context.Context, version, os, ucid, description, logContext, log string) error
}
