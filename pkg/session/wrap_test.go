package session

import (
	"bytes"
	"testing"

	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/block"
	"github.com/safedrive/safedrive-engine/pkg/keys"
)

func mustMainKey(t *testing.T) keys.Key {
	t.Helper()
	k, err := keys.NewKey(keys.TypeMain)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func TestWrapUnwrapSessionV1(t *testing.T) {
	mainKey := mustMainKey(t)
	tarBytes := []byte("a small uncompressible v1 session archive")

	wire, err := WrapSession(tarBytes, binformat.Version1, block.Options{Channel: block.ChannelStable}, mainKey)
	if err != nil {
		t.Fatalf("WrapSession: %v", err)
	}

	got, err := UnwrapSession(wire, mainKey)
	if err != nil {
		t.Fatalf("UnwrapSession: %v", err)
	}
	if !bytes.Equal(got, tarBytes) {
		t.Fatalf("round trip mismatch: got %q want %q", got, tarBytes)
	}
}

func TestWrapUnwrapSessionV2Compressible(t *testing.T) {
	mainKey := mustMainKey(t)
	tarBytes := bytes.Repeat([]byte("SafeDrive sync session payload, repeated. "), 512)

	wire, err := WrapSession(tarBytes, binformat.Version2, block.Options{Channel: block.ChannelBeta, Production: true}, mainKey)
	if err != nil {
		t.Fatalf("WrapSession: %v", err)
	}

	envelope, err := binformat.DecodeEnvelope(wire)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if !envelope.Header.Flags.Compressed() {
		t.Fatalf("expected a highly repetitive payload to compress")
	}
	if !envelope.Header.Flags.Production() {
		t.Fatalf("expected production flag to be stamped")
	}
	if block.ChannelFromFlags(envelope.Header.Flags) != block.ChannelBeta {
		t.Fatalf("expected beta channel to round-trip through flags")
	}

	got, err := UnwrapSession(wire, mainKey)
	if err != nil {
		t.Fatalf("UnwrapSession: %v", err)
	}
	if !bytes.Equal(got, tarBytes) {
		t.Fatalf("round trip mismatch after compression")
	}
}

func TestWrapUnwrapSessionV2Incompressible(t *testing.T) {
	mainKey := mustMainKey(t)
	// Short, low-redundancy payload: LZ4 framing overhead means this won't
	// shrink, so WrapSession must fall back to storing it uncompressed.
	tarBytes := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	wire, err := WrapSession(tarBytes, binformat.Version2, block.Options{Channel: block.ChannelStable}, mainKey)
	if err != nil {
		t.Fatalf("WrapSession: %v", err)
	}

	got, err := UnwrapSession(wire, mainKey)
	if err != nil {
		t.Fatalf("UnwrapSession: %v", err)
	}
	if !bytes.Equal(got, tarBytes) {
		t.Fatalf("round trip mismatch for incompressible payload")
	}
}

func TestUnwrapSessionWrongKeyFails(t *testing.T) {
	mainKey := mustMainKey(t)
	otherKey := mustMainKey(t)

	wire, err := WrapSession([]byte("secret session contents"), binformat.Version1, block.Options{}, mainKey)
	if err != nil {
		t.Fatalf("WrapSession: %v", err)
	}

	if _, err := UnwrapSession(wire, otherKey); err == nil {
		t.Fatalf("expected UnwrapSession to fail under the wrong main key")
	}
}

func TestUnwrapSessionRejectsBlockEnvelope(t *testing.T) {
	mainKey := mustMainKey(t)
	hmacKey := mustMainKey(t)

	wire, _, err := block.EncodeBlock([]byte("plaintext"), binformat.Version1, block.Options{}, hmacKey, mainKey)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}

	if _, err := UnwrapSession(wire, mainKey); err == nil {
		t.Fatalf("expected UnwrapSession to reject a block envelope")
	}
}
