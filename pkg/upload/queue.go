package upload

import (
	"context"

	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/cancel"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Queue is the bounded-channel producer/consumer pair for one session's
// uploads. Send blocks the producer until the worker has room, which is
// the engine's only backpressure mechanism between chunking and the
// network.
type Queue struct {
	cfg     Config
	store   remote.Store
	token   remote.Token
	session string
	cache   *cache.Cache

	messages chan Message
	status   chan Status
}

// New starts a Queue's worker goroutine, uploading to store under token for
// the named session. blockCache may be nil; when set, each block flushed
// successfully (uploaded or already present on the remote) is marked
// confirmed, so the startup recovery scan (Recover) never re-sends it.
func New(ctx context.Context, store remote.Store, token remote.Token, session string, cfg Config, blockCache *cache.Cache) *Queue {
	q := &Queue{
		cfg:      cfg,
		store:    store,
		token:    token,
		session:  session,
		cache:    blockCache,
		messages: make(chan Message, cfg.QueueDepth),
		status:   make(chan Status, 1),
	}
	go q.run(ctx)
	return q
}

// Send enqueues a block for upload, blocking until the worker has capacity.
func (q *Queue) Send(block remote.BlockUpload) {
	q.messages <- Message{Block: &block}
	metrics.RecordQueueDepth(len(q.messages))
}

// Cancel requests the worker drain and exit without further network calls.
func (q *Queue) Cancel() {
	q.messages <- Message{Cancel: true}
}

// Finish signals no more blocks are coming; the worker flushes whatever it
// still holds and reports final status.
func (q *Queue) Finish() Status {
	q.messages <- Message{Done: true}
	return <-q.status
}

// run is the worker loop: accumulate messages into a batch, flush when the
// batch crosses either limit, handle the done/cancel signals.
func (q *Queue) run(ctx context.Context) {
	var batch []remote.BlockUpload
	var batchBytes int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if cancel.IsCancelled(q.session) {
			batch = nil
			batchBytes = 0
			return secerr.New(secerr.KindCancelled, "upload_flush", nil).WithSession(q.session)
		}
		err := flushBatch(ctx, q.store, q.token, q.session, batch, q.cfg, q.cache)
		batch = nil
		batchBytes = 0
		return err
	}

	for msg := range q.messages {
		switch {
		case msg.Cancel:
			cancel.Clear(q.session)
			q.status <- Status{Finished: false, Err: secerr.New(secerr.KindCancelled, "upload", nil).WithSession(q.session)}
			return

		case msg.Done:
			err := flush()
			q.status <- Status{Finished: true, Err: err}
			return

		case msg.Block != nil:
			batch = append(batch, *msg.Block)
			batchBytes += int64(len(msg.Block.Data))
			if len(batch) >= q.cfg.ItemLimit || batchBytes >= q.cfg.SizeLimit {
				if err := flush(); err != nil {
					logger.Error("upload batch flush failed", "session", q.session, "error", err)
					q.status <- Status{Finished: false, Err: err}
					return
				}
			}
		}
	}
}
