// Package upload implements the write-through upload queue (C6): it
// decouples block production from network upload, batches blocks up to a
// configured item/byte limit, filters each batch against the remote store's
// check_block before sending, and retries failed batches with the engine's
// standard backoff discipline.
package upload

import (
	"time"

	"github.com/safedrive/safedrive-engine/pkg/remote"
)

// RecoveryStats holds statistics about a startup recovery scan.
type RecoveryStats struct {
	BlocksFound    int
	BlocksUploaded int
	BlocksFailed   int
	BytesUploaded  int64
}

// Message is one entry on the producer→worker channel. Exactly one of
// Block, Cancel, or Done is meaningful per message.
type Message struct {
	Block  *remote.BlockUpload
	Cancel bool
	Done   bool
}

// Status is reported back to the producer exactly once, when the worker
// exits (after Done, after Cancel, or on the first failed flush),
// mirroring the protocol's separate status channel.
type Status struct {
	Finished bool
	Err      error
}

// Config controls batching and retry behavior.
type Config struct {
	ItemLimit                 int
	SizeLimit                 int64
	MaxRetries                int
	ServiceUnavailableRetries int
	QueueDepth                int

	// RecoveryParallelism bounds how many unconfirmed blocks the startup
	// recovery scan (Recover) re-uploads concurrently.
	RecoveryParallelism int
}

// DefaultConfig returns the batching/retry defaults used when a caller
// doesn't override them.
func DefaultConfig() Config {
	return Config{
		ItemLimit:                 300,
		SizeLimit:                 10 << 20,
		MaxRetries:                15,
		ServiceUnavailableRetries: 3,
		QueueDepth:                64,
		RecoveryParallelism:       4,
	}
}

// backoff returns the sleep duration before retry attempt f (1-indexed,
// where f is the count of attempts already failed), per the engine-wide
// backoff discipline: uniform(0, 1.5) * f².
var randomFloat = defaultRandomFloat

func backoff(f int) time.Duration {
	multiplier := randomFloat() * 1.5
	seconds := multiplier * float64(f*f)
	return time.Duration(seconds * float64(time.Second))
}
