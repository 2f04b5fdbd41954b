package upload

import (
	"context"
	"testing"

	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/remote"
)

func newTestCacheForRecovery(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(cache.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecoverUploadsUnconfirmedBlocks(t *testing.T) {
	blockCache := newTestCacheForRecovery(t)
	if err := blockCache.Write("recover1", []byte("payload-one")); err != nil {
		t.Fatal(err)
	}
	if err := blockCache.Write("recover2", []byte("payload-two")); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	stats, err := Recover(context.Background(), store, remote.Token("tok"), blockCache, testConfig())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if stats.BlocksFound != 2 || stats.BlocksUploaded != 2 || stats.BlocksFailed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.written) != 2 {
		t.Fatalf("expected 2 blocks written, got %d", len(store.written))
	}

	pending, err := blockCache.ListUnconfirmed()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no unconfirmed blocks after recovery, got %d", len(pending))
	}
}

func TestRecoverSkipsAlreadyConfirmedBlocks(t *testing.T) {
	blockCache := newTestCacheForRecovery(t)
	if err := blockCache.Write("confirmed", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := blockCache.Confirm("confirmed"); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	stats, err := Recover(context.Background(), store, remote.Token("tok"), blockCache, testConfig())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if stats.BlocksFound != 0 {
		t.Fatalf("expected no unconfirmed blocks to scan, got %d", stats.BlocksFound)
	}
	if len(store.written) != 0 {
		t.Fatal("expected no network calls for an already-confirmed block")
	}
}

func TestRecoverIsQuietWhenNothingPending(t *testing.T) {
	blockCache := newTestCacheForRecovery(t)
	store := newFakeStore()

	stats, err := Recover(context.Background(), store, remote.Token("tok"), blockCache, testConfig())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if stats.BlocksFound != 0 || stats.BlocksUploaded != 0 {
		t.Fatalf("expected a no-op recovery, got %+v", stats)
	}
}

func TestRecoverRequiresCache(t *testing.T) {
	store := newFakeStore()
	if _, err := Recover(context.Background(), store, remote.Token("tok"), nil, testConfig()); err == nil {
		t.Fatal("expected an error when blockCache is nil")
	}
}
