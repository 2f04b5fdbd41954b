package upload

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/safedrive/safedrive-engine/pkg/cancel"
	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// fakeStore implements remote.Store by embedding the interface (so only the
// methods a test actually exercises need overriding) plus in-memory block
// bookkeeping for CheckBlock/WriteBlocks.
type fakeStore struct {
	remote.Store

	mu      sync.Mutex
	present map[string]bool
	written []remote.BlockUpload

	writeErr      error
	failFirstN    int
	writeAttempts int
}

func (f *fakeStore) CheckBlock(ctx context.Context, token remote.Token, hmacHex string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[hmacHex], nil
}

func (f *fakeStore) WriteBlocks(ctx context.Context, token remote.Token, session string, blocks []remote.BlockUpload) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeAttempts++

	if f.writeAttempts <= f.failFirstN {
		return nil, f.writeErr
	}

	for _, b := range blocks {
		if f.present == nil {
			f.present = make(map[string]bool)
		}
		f.present[b.HMACHex] = true
		f.written = append(f.written, b)
	}
	return nil, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{present: make(map[string]bool)}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ItemLimit = 2
	cfg.SizeLimit = 1 << 20
	cfg.QueueDepth = 8
	return cfg
}

func TestQueueFlushesOnItemLimit(t *testing.T) {
	store := newFakeStore()
	q := New(context.Background(), store, remote.Token("tok"), "session-1", testConfig(), nil)

	q.Send(remote.BlockUpload{HMACHex: "a", Data: []byte("one")})
	q.Send(remote.BlockUpload{HMACHex: "b", Data: []byte("two")})
	status := q.Finish()

	if status.Err != nil {
		t.Fatalf("expected clean finish, got %v", status.Err)
	}
	if !status.Finished {
		t.Fatal("expected Finished true")
	}
	if len(store.written) != 2 {
		t.Fatalf("expected 2 blocks written, got %d", len(store.written))
	}
}

func TestQueueSkipsBlocksAlreadyOnServer(t *testing.T) {
	store := newFakeStore()
	store.present["existing"] = true

	q := New(context.Background(), store, remote.Token("tok"), "session-2", testConfig(), nil)
	q.Send(remote.BlockUpload{HMACHex: "existing", Data: []byte("dup")})
	status := q.Finish()

	if status.Err != nil {
		t.Fatalf("unexpected error: %v", status.Err)
	}
	if len(store.written) != 0 {
		t.Fatalf("expected dedup to skip upload, got %d writes", len(store.written))
	}
}

func TestQueueAuthenticationAbortsImmediately(t *testing.T) {
	store := newFakeStore()
	store.failFirstN = 100
	store.writeErr = secerr.New(secerr.KindAuthentication, "write_blocks", fmt.Errorf("bad token"))

	q := New(context.Background(), store, remote.Token("tok"), "session-3", testConfig(), nil)
	q.Send(remote.BlockUpload{HMACHex: "a", Data: []byte("x")})
	status := q.Finish()

	if status.Err == nil || !secerr.Is(status.Err, secerr.KindAuthentication) {
		t.Fatalf("expected Authentication error, got %v", status.Err)
	}
	if store.writeAttempts != 1 {
		t.Fatalf("expected exactly one attempt before abort, got %d", store.writeAttempts)
	}
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore()
	store.failFirstN = 2
	store.writeErr = secerr.New(secerr.KindNetworkFailure, "write_blocks", fmt.Errorf("transient"))

	q := New(context.Background(), store, remote.Token("tok"), "session-4", testConfig(), nil)
	q.Send(remote.BlockUpload{HMACHex: "a", Data: []byte("x")})
	status := q.Finish()

	if status.Err != nil {
		t.Fatalf("expected eventual success, got %v", status.Err)
	}
	if store.writeAttempts != 3 {
		t.Fatalf("expected 3 attempts (2 failures + 1 success), got %d", store.writeAttempts)
	}
}

func TestQueueCancelDrainsAndExits(t *testing.T) {
	store := newFakeStore()
	q := New(context.Background(), store, remote.Token("tok"), "session-5", testConfig(), nil)

	cancel.Cancel("session-5")
	q.Send(remote.BlockUpload{HMACHex: "a", Data: []byte("x")})
	q.Cancel()

	if len(store.written) != 0 {
		t.Fatalf("expected no writes after cancel, got %d", len(store.written))
	}
}

func TestBackoffGrowsWithFailedCount(t *testing.T) {
	old := randomFloat
	randomFloat = func() float64 { return 1.0 }
	defer func() { randomFloat = old }()

	if backoff(1) >= backoff(4) {
		t.Fatal("expected backoff to grow with more failed attempts")
	}
}
