package block

import (
	"bytes"
	"testing"

	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/keys"
)

func testKeys(t *testing.T) (hmacKey, mainKey keys.Key) {
	t.Helper()
	hmacKey, err := keys.NewKey(keys.TypeHMAC)
	if err != nil {
		t.Fatal(err)
	}
	mainKey, err = keys.NewKey(keys.TypeMain)
	if err != nil {
		t.Fatal(err)
	}
	return hmacKey, mainKey
}

func TestEncodeDecodeRoundTripV1(t *testing.T) {
	hmacKey, mainKey := testKeys(t)
	plaintext := bytes.Repeat([]byte{0x07}, 4096)

	wire, blockHMAC, err := EncodeBlock(plaintext, binformat.Version1, Options{Channel: ChannelStable, Production: true}, hmacKey, mainKey)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}

	decoded, err := DecodeBlock(wire, blockHMAC, mainKey)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if !bytes.Equal(decoded.Data, plaintext) {
		t.Fatal("decoded plaintext mismatch")
	}
	if decoded.Compressed {
		t.Fatal("v1 blocks should never be marked compressed")
	}
	if !decoded.Production {
		t.Fatal("expected production flag to round trip")
	}
}

func TestEncodeDecodeRoundTripV2(t *testing.T) {
	hmacKey, mainKey := testKeys(t)
	// Highly compressible payload so LZ4 is guaranteed to shrink it.
	plaintext := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 500)

	wire, blockHMAC, err := EncodeBlock(plaintext, binformat.Version2, Options{Channel: ChannelBeta}, hmacKey, mainKey)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}

	decoded, err := DecodeBlock(wire, blockHMAC, mainKey)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if !bytes.Equal(decoded.Data, plaintext) {
		t.Fatal("decoded plaintext mismatch")
	}
	if !decoded.Compressed {
		t.Fatal("expected highly compressible payload to compress")
	}
	if decoded.Channel != ChannelBeta {
		t.Fatalf("expected ChannelBeta, got %v", decoded.Channel)
	}
}

func TestEncodeDecodeV2IncompressiblePayload(t *testing.T) {
	hmacKey, mainKey := testKeys(t)
	// Random data won't compress; the encoder must fall back to storing it
	// uncompressed rather than bloating it.
	plaintext := make([]byte, 4096)
	x := uint32(2463534242)
	for i := range plaintext {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		plaintext[i] = byte(x)
	}

	wire, blockHMAC, err := EncodeBlock(plaintext, binformat.Version2, Options{}, hmacKey, mainKey)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	decoded, err := DecodeBlock(wire, blockHMAC, mainKey)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if !bytes.Equal(decoded.Data, plaintext) {
		t.Fatal("decoded plaintext mismatch")
	}
}

func TestEncodeContentAddressIsDeterministic(t *testing.T) {
	hmacKey, mainKey := testKeys(t)
	plaintext := []byte("deterministic block content")

	_, hmacA, err := EncodeBlock(plaintext, binformat.Version1, Options{}, hmacKey, mainKey)
	if err != nil {
		t.Fatal(err)
	}
	_, hmacB, err := EncodeBlock(plaintext, binformat.Version1, Options{}, hmacKey, mainKey)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(hmacA, hmacB) {
		t.Fatal("expected identical content address across encodes")
	}
}

func TestDecodeBlockWrongKeyFails(t *testing.T) {
	hmacKey, mainKey := testKeys(t)
	wrongMain, err := keys.NewKey(keys.TypeMain)
	if err != nil {
		t.Fatal(err)
	}
	plaintext := []byte("some data")

	wire, blockHMAC, err := EncodeBlock(plaintext, binformat.Version1, Options{}, hmacKey, mainKey)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := DecodeBlock(wire, blockHMAC, wrongMain); err == nil {
		t.Fatal("expected decode to fail under the wrong main key")
	}
}

func TestComputeHMACDeterministicPerVersion(t *testing.T) {
	hmacKey, _ := testKeys(t)
	data := []byte("hello world")

	h1v1, err := ComputeHMAC(data, binformat.Version1, hmacKey)
	if err != nil {
		t.Fatal(err)
	}
	h2v1, err := ComputeHMAC(data, binformat.Version1, hmacKey)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(h1v1, h2v1) {
		t.Fatal("expected v1 hmac to be deterministic")
	}

	h1v2, err := ComputeHMAC(data, binformat.Version2, hmacKey)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(h1v1, h1v2) {
		t.Fatal("expected v1 and v2 content addressing to differ")
	}
	if len(h1v2) != binformat.HMACSize {
		t.Fatalf("expected %d-byte hmac, got %d", binformat.HMACSize, len(h1v2))
	}
}
