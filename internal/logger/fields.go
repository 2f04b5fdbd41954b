package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so aggregation/querying stays stable.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Operation & Account
	// ========================================================================
	KeyOperation = "operation" // sync, restore, retention, recover
	KeyAccount   = "account"   // unique client ID
	KeyFolder    = "folder"    // folder name/path being synced or restored
	KeySession   = "session"   // sync session name (UUID string)

	// ========================================================================
	// Chunk / Block Pipeline
	// ========================================================================
	KeyChunkIndex  = "chunk_index"  // chunk ordinal within a session
	KeyChunkSize   = "chunk_size"   // chunk size in bytes
	KeyBlockHMAC   = "block_hmac"   // hex-encoded block content address
	KeyBlockSize   = "block_size"   // wrapped block size on the wire
	KeyVersion     = "sync_version" // sync session format version (v1/v2)
	KeyCompressed  = "compressed"   // whether a block's payload was compressed
	KeyDeduplicate = "deduplicated" // block skipped upload because it already existed remotely

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyPath         = "path"         // full file/directory path
	KeyOffset       = "offset"       // byte offset
	KeyBytesRead    = "bytes_read"   // actual bytes read
	KeyBytesWritten = "bytes_written"

	// ========================================================================
	// Progress & Cancellation
	// ========================================================================
	KeyPercent    = "percent_completed"
	KeyEstimated  = "estimated_bytes"
	KeyProcessed  = "processed_bytes"
	KeyCancelled  = "cancelled"

	// ========================================================================
	// Retry / Backoff
	// ========================================================================
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // maximum retry attempts
	KeyBackoffMs  = "backoff_ms"  // computed backoff delay in milliseconds

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorKind  = "error_kind"  // SafeDrive error taxonomy kind
	KeySource     = "source"      // cache, remote

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyStoreType = "store_type" // store type: filesystem, s3
	KeyBucket    = "bucket"     // cloud bucket name
	KeyKey       = "key"        // object key in cloud storage
	KeyRegion    = "region"     // cloud region

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit      = "cache_hit"
	KeyCacheSize     = "cache_size"
	KeyCacheCapacity = "cache_capacity"
	KeyEvicted       = "evicted"

	// ========================================================================
	// Retention
	// ========================================================================
	KeySchedule = "schedule" // retention schedule kind
	KeyKept     = "kept"     // number of sessions kept
	KeyPruned   = "pruned"   // number of sessions removed
)

// ----------------------------------------------------------------------------
// Field constructors for type safety
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Operation returns a slog.Attr for the running operation name
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Account returns a slog.Attr for the unique client ID
func Account(id string) slog.Attr { return slog.String(KeyAccount, id) }

// Folder returns a slog.Attr for the folder path being synced/restored
func Folder(path string) slog.Attr { return slog.String(KeyFolder, path) }

// Session returns a slog.Attr for the sync session name
func Session(name string) slog.Attr { return slog.String(KeySession, name) }

// ChunkIndex returns a slog.Attr for the chunk ordinal
func ChunkIndex(n int) slog.Attr { return slog.Int(KeyChunkIndex, n) }

// ChunkSize returns a slog.Attr for chunk size in bytes
func ChunkSize(n int) slog.Attr { return slog.Int(KeyChunkSize, n) }

// BlockHMAC returns a slog.Attr for a hex-encoded block content address
func BlockHMAC(hex string) slog.Attr { return slog.String(KeyBlockHMAC, hex) }

// BlockSize returns a slog.Attr for the wrapped block's wire size
func BlockSize(n int) slog.Attr { return slog.Int(KeyBlockSize, n) }

// Version returns a slog.Attr for the sync session format version
func Version(v int) slog.Attr { return slog.Int(KeyVersion, v) }

// Compressed returns a slog.Attr for whether a payload was compressed
func Compressed(c bool) slog.Attr { return slog.Bool(KeyCompressed, c) }

// Deduplicated returns a slog.Attr for a skipped-upload (already present remotely)
func Deduplicated(d bool) slog.Attr { return slog.Bool(KeyDeduplicate, d) }

// Path returns a slog.Attr for a file/directory path
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr { return slog.Uint64(KeyOffset, off) }

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr { return slog.Int(KeyBytesRead, n) }

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }

// Percent returns a slog.Attr for percent completed
func Percent(p float64) slog.Attr { return slog.Float64(KeyPercent, p) }

// Estimated returns a slog.Attr for estimated total bytes
func Estimated(n uint64) slog.Attr { return slog.Uint64(KeyEstimated, n) }

// Processed returns a slog.Attr for processed byte count so far
func Processed(n uint64) slog.Attr { return slog.Uint64(KeyProcessed, n) }

// Cancelled returns a slog.Attr for a cancellation flag
func Cancelled(c bool) slog.Attr { return slog.Bool(KeyCancelled, c) }

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr { return slog.Int(KeyMaxRetries, n) }

// BackoffMs returns a slog.Attr for computed backoff delay
func BackoffMs(ms float64) slog.Attr { return slog.Float64(KeyBackoffMs, ms) }

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for a SafeDrive error taxonomy kind
func ErrorKind(kind string) slog.Attr { return slog.String(KeyErrorKind, kind) }

// Source returns a slog.Attr for the data source (cache, remote)
func Source(src string) slog.Attr { return slog.String(KeySource, src) }

// StoreType returns a slog.Attr for the remote store backend type
func StoreType(t string) slog.Attr { return slog.String(KeyStoreType, t) }

// Bucket returns a slog.Attr for a cloud bucket name
func Bucket(name string) slog.Attr { return slog.String(KeyBucket, name) }

// Key returns a slog.Attr for an object key in cloud storage
func Key(k string) slog.Attr { return slog.String(KeyKey, k) }

// Region returns a slog.Attr for a cloud region
func Region(r string) slog.Attr { return slog.String(KeyRegion, r) }

// CacheHit returns a slog.Attr for a cache hit indicator
func CacheHit(hit bool) slog.Attr { return slog.Bool(KeyCacheHit, hit) }

// CacheSize returns a slog.Attr for current cache size
func CacheSize(size int64) slog.Attr { return slog.Int64(KeyCacheSize, size) }

// CacheCapacity returns a slog.Attr for maximum cache capacity
func CacheCapacity(capacity int64) slog.Attr { return slog.Int64(KeyCacheCapacity, capacity) }

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr { return slog.Int(KeyEvicted, n) }

// Schedule returns a slog.Attr for a retention schedule kind
func Schedule(s string) slog.Attr { return slog.String(KeySchedule, s) }

// Kept returns a slog.Attr for the number of sessions a retention pass kept
func Kept(n int) slog.Attr { return slog.Int(KeyKept, n) }

// Pruned returns a slog.Attr for the number of sessions a retention pass removed
func Pruned(n int) slog.Attr { return slog.Int(KeyPruned, n) }
