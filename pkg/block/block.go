// Package block implements the block pipeline (C4): content addressing,
// compression, and authenticated encryption of a single chunk's plaintext
// into its on-wire WrappedBlock form, and the inverse on restore.
package block

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/keys"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Channel is the release channel a block (or session) was produced by.
type Channel int

const (
	ChannelStable Channel = iota
	ChannelBeta
	ChannelNightly
)

// Flag returns the on-wire flag bit for this channel, shared with the
// session envelope header which stamps the same provenance information.
func (c Channel) Flag() binformat.Flags {
	switch c {
	case ChannelBeta:
		return binformat.FlagBeta
	case ChannelNightly:
		return binformat.FlagNightly
	default:
		return binformat.FlagStable
	}
}

// ChannelFromFlags recovers the release channel stamped into a decoded
// header's flags.
func ChannelFromFlags(f binformat.Flags) Channel {
	switch {
	case f&binformat.FlagBeta != 0:
		return ChannelBeta
	case f&binformat.FlagNightly != 0:
		return ChannelNightly
	default:
		return ChannelStable
	}
}

// Options carries the provenance flags stamped onto every block a running
// instance produces.
type Options struct {
	Channel    Channel
	Production bool
}

// Block is the decrypted, decompressed form of one content-defined chunk.
type Block struct {
	Version    binformat.Version
	HMAC       []byte
	Data       []byte
	Compressed bool
	Channel    Channel
	Production bool
}

// ComputeHMAC derives a block's content address from its plaintext: v1 uses
// HMAC-SHA256, v2 uses keyed blake2b-256. This is exposed standalone so
// upload pre-flight can check whether a block already exists remotely
// before doing the (more expensive) full encode.
func ComputeHMAC(data []byte, version binformat.Version, hmacKey keys.Key) ([]byte, error) {
	switch version {
	case binformat.Version1:
		mac := hmac.New(sha256.New, hmacKey.AsHMACKey())
		mac.Write(data)
		return mac.Sum(nil), nil
	case binformat.Version2:
		h, err := blake2b.New(binformat.HMACSize, hmacKey.AsBlake2Key(keys.KeySize))
		if err != nil {
			return nil, secerr.New(secerr.KindInternal, "block_hmac", err)
		}
		h.Write(data)
		return h.Sum(nil), nil
	default:
		return nil, secerr.New(secerr.KindInternal, "block_hmac", fmt.Errorf("unsupported version %d", version))
	}
}

// wrapNonce derives the secretbox nonce used to seal both the block
// ciphertext and its wrapped key, from the block's HMAC. Using the same
// nonce for both is safe because a nonce is only ever reused across
// different keys (block key vs. main key), never for the same key twice;
// it is also what keeps block encryption deterministic, which dedup relies
// on.
func wrapNonce(version binformat.Version, blockHMAC []byte) ([keys.NonceSize]byte, error) {
	var nonce [keys.NonceSize]byte
	switch version {
	case binformat.Version1:
		if len(blockHMAC) < keys.NonceSize {
			return nonce, fmt.Errorf("block: hmac too short to derive a v1 nonce: %d bytes", len(blockHMAC))
		}
		copy(nonce[:], blockHMAC[:keys.NonceSize])
	case binformat.Version2:
		h, err := blake2b.New(keys.NonceSize, nil)
		if err != nil {
			return nonce, err
		}
		h.Write(blockHMAC)
		copy(nonce[:], h.Sum(nil))
	default:
		return nonce, fmt.Errorf("block: unsupported version %d", version)
	}
	return nonce, nil
}

// EncodeBlock compresses (v2 only, best-effort), pads (v2 only), and seals
// plaintext under a fresh random block key, returning the complete on-wire
// envelope bytes and the block's content-address HMAC.
func EncodeBlock(plaintext []byte, version binformat.Version, opts Options, hmacKey, mainKey keys.Key) (wire []byte, blockHMAC []byte, err error) {
	blockHMAC, err = ComputeHMAC(plaintext, version, hmacKey)
	if err != nil {
		return nil, nil, err
	}

	payload := plaintext
	compressed := false
	if version == binformat.Version2 {
		if c, ok := tryCompress(plaintext); ok {
			payload = c
			compressed = true
		}
	}

	if version == binformat.Version2 {
		payload = binformat.Pad(payload)
	}

	nonce, err := wrapNonce(version, blockHMAC)
	if err != nil {
		return nil, nil, secerr.NewCrypto("block_encode", secerr.CryptoBlockEncryptFailed, err)
	}

	blockKey, err := keys.NewKey(keys.TypeBlock)
	if err != nil {
		return nil, nil, err
	}

	var blockKeyArr [keys.KeySize]byte
	copy(blockKeyArr[:], blockKey.Bytes())
	wrappedData := secretbox.Seal(nil, payload, &nonce, &blockKeyArr)

	wrappedBlockKey, err := blockKey.Wrap(mainKey, &nonce)
	if err != nil {
		return nil, nil, secerr.NewCrypto("block_encode", secerr.CryptoKeyWrapFailed, err)
	}

	flags := opts.Channel.Flag()
	if opts.Production {
		flags |= binformat.FlagProduction
	}
	if compressed {
		flags |= binformat.FlagCompressed
	}

	envelope := binformat.Envelope{
		Header:      binformat.Header{Type: binformat.FileTypeBlock, Version: version, Flags: flags},
		WrappedKey:  wrappedBlockKey.Bytes(),
		Nonce:       nonce[:],
		WrappedData: wrappedData,
	}
	return envelope.Encode(), blockHMAC, nil
}

// DecodeBlock parses wire bytes (as produced by EncodeBlock) and unwraps
// them under mainKey, returning the original plaintext block. blockHMAC is
// the content address the caller already knows (e.g. from the cache
// filename or remote key) and is attached to the result for bookkeeping;
// it is not required for decryption.
func DecodeBlock(wire []byte, blockHMAC []byte, mainKey keys.Key) (*Block, error) {
	envelope, err := binformat.DecodeEnvelope(wire)
	if err != nil {
		return nil, secerr.New(secerr.KindBlockUnreadable, "block_decode", err)
	}
	if envelope.Header.Type != binformat.FileTypeBlock {
		return nil, secerr.New(secerr.KindBlockUnreadable, "block_decode",
			fmt.Errorf("expected block envelope, got file type %q", envelope.Header.Type))
	}

	var nonce [keys.NonceSize]byte
	copy(nonce[:], envelope.Nonce)

	wrappedKey := keys.WrappedKeyFromBytes(envelope.WrappedKey, keys.TypeBlock)
	blockKey, err := wrappedKey.Unwrap(mainKey, &nonce)
	if err != nil {
		return nil, secerr.NewCrypto("block_decode", secerr.CryptoBlockDecryptFailed, err)
	}

	var blockKeyArr [keys.KeySize]byte
	copy(blockKeyArr[:], blockKey.Bytes())

	opened, ok := secretbox.Open(nil, envelope.WrappedData, &nonce, &blockKeyArr)
	if !ok {
		return nil, secerr.NewCrypto("block_decode", secerr.CryptoBlockDecryptFailed, nil)
	}

	payload := opened
	if envelope.Header.Version == binformat.Version2 {
		payload, err = binformat.Unpad(payload)
		if err != nil {
			return nil, secerr.New(secerr.KindBlockUnreadable, "block_decode", err)
		}
	}

	compressed := envelope.Header.Flags.Compressed()
	if compressed {
		decompressed, err := decompress(payload)
		if err != nil {
			return nil, secerr.New(secerr.KindBlockUnreadable, "block_decode", err)
		}
		payload = decompressed
	}

	return &Block{
		Version:    envelope.Header.Version,
		HMAC:       blockHMAC,
		Data:       payload,
		Compressed: compressed,
		Channel:    ChannelFromFlags(envelope.Header.Flags),
		Production: envelope.Header.Flags.Production(),
	}, nil
}

// lz4Level matches the original implementation's compression level for
// block payloads.
const lz4Level = lz4.Level8

// tryCompress compresses data with LZ4, returning (compressed, true) only
// if the result is strictly smaller than the input; otherwise the caller
// should keep the original bytes uncompressed.
func tryCompress(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4Level)); err != nil {
		return nil, false
	}
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(data) {
		return nil, false
	}
	return buf.Bytes(), true
}

func decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
