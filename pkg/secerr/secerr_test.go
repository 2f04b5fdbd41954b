package secerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapping(t *testing.T) {
	base := errors.New("disk is full")
	err := New(KindInsufficientFreeSpace, "sync", base).WithFolder("/home/alice/Documents").WithSession("s-1")

	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to find the wrapped sentinel")
	}
	if !Is(err, KindInsufficientFreeSpace) {
		t.Fatal("expected Is to match the Kind")
	}
	if Is(err, KindIO) {
		t.Fatal("did not expect Is to match an unrelated Kind")
	}

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestExceededRetries(t *testing.T) {
	err := NewExceededRetries("upload", 15)
	if !Is(err, KindExceededRetries) {
		t.Fatal("expected KindExceededRetries")
	}
	if err.Attempt != 15 {
		t.Fatalf("expected Attempt=15, got %d", err.Attempt)
	}
	var retriesErr *ExceededRetriesError
	if !errors.As(err, &retriesErr) {
		t.Fatal("expected errors.As to find ExceededRetriesError")
	}
	if retriesErr.Attempts != 15 {
		t.Fatalf("expected Attempts=15, got %d", retriesErr.Attempts)
	}
}

func TestNestedCryptoError(t *testing.T) {
	inner := fmt.Errorf("checksum mismatch")
	err := NewCrypto("unwrap", CryptoRecoveryPhraseInvalid, inner)

	if !Is(err, KindCrypto) {
		t.Fatal("expected KindCrypto")
	}

	var ce *CryptoError
	if !errors.As(err, &ce) {
		t.Fatal("expected errors.As to find *CryptoError")
	}
	if ce.Subkind != CryptoRecoveryPhraseInvalid {
		t.Fatalf("expected CryptoRecoveryPhraseInvalid, got %s", ce.Subkind)
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to reach through CryptoError to inner")
	}
}

func TestNestedKeychainError(t *testing.T) {
	err := NewKeychain("load", KeychainItemMissing, nil)
	if !Is(err, KindKeychain) {
		t.Fatal("expected KindKeychain")
	}
	var ke *KeychainError
	if !errors.As(err, &ke) {
		t.Fatal("expected errors.As to find *KeychainError")
	}
	if ke.Subkind != KeychainItemMissing {
		t.Fatalf("expected KeychainItemMissing, got %s", ke.Subkind)
	}
}
