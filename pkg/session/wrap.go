package session

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/block"
	"github.com/safedrive/safedrive-engine/pkg/keys"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// sessionLZ4Level is the session archive's own compression level, higher
// than a block's since sessions are compressed once as a whole rather than
// per small chunk.
const sessionLZ4Level = lz4.Level9

// WrapSession seals a serialized tar archive (plaintext session bytes) under
// a fresh random session key, itself wrapped under mainKey with a freshly
// generated random nonce — unlike a block's deterministic wrap nonce, a
// session only exists once, so determinism buys nothing and a random nonce
// is simpler.
func WrapSession(tarBytes []byte, version binformat.Version, opts block.Options, mainKey keys.Key) (wire []byte, err error) {
	payload := tarBytes
	compressed := false
	if version == binformat.Version2 {
		if c, ok := tryCompress(tarBytes); ok {
			payload = c
			compressed = true
		}
		payload = binformat.Pad(payload)
	}

	var nonce [keys.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, secerr.NewCrypto("session_wrap", secerr.CryptoSessionEncryptFailed, err)
	}

	sessionKey, err := keys.NewKey(keys.TypeSession)
	if err != nil {
		return nil, err
	}

	wrappedData := seal(payload, nonce, sessionKey)

	wrappedSessionKey, err := sessionKey.Wrap(mainKey, &nonce)
	if err != nil {
		return nil, secerr.NewCrypto("session_wrap", secerr.CryptoKeyWrapFailed, err)
	}

	flags := opts.Channel.Flag()
	if opts.Production {
		flags |= binformat.FlagProduction
	}
	if compressed {
		flags |= binformat.FlagCompressed
	}

	envelope := binformat.Envelope{
		Header:      binformat.Header{Type: binformat.FileTypeSession, Version: version, Flags: flags},
		WrappedKey:  wrappedSessionKey.Bytes(),
		Nonce:       nonce[:],
		WrappedData: wrappedData,
	}
	return envelope.Encode(), nil
}

// UnwrapSession reverses WrapSession, returning the original tar bytes.
func UnwrapSession(wire []byte, mainKey keys.Key) (tarBytes []byte, err error) {
	envelope, err := binformat.DecodeEnvelope(wire)
	if err != nil {
		return nil, secerr.New(secerr.KindSessionUnreadable, "session_unwrap", err)
	}
	if envelope.Header.Type != binformat.FileTypeSession {
		return nil, secerr.New(secerr.KindSessionUnreadable, "session_unwrap",
			fmt.Errorf("expected session envelope, got file type %q", envelope.Header.Type))
	}

	var nonce [keys.NonceSize]byte
	copy(nonce[:], envelope.Nonce)

	wrappedKey := keys.WrappedKeyFromBytes(envelope.WrappedKey, keys.TypeSession)
	sessionKey, err := wrappedKey.Unwrap(mainKey, &nonce)
	if err != nil {
		return nil, secerr.NewCrypto("session_unwrap", secerr.CryptoSessionDecryptFailed, err)
	}

	payload, err := open(envelope.WrappedData, nonce, sessionKey)
	if err != nil {
		return nil, secerr.NewCrypto("session_unwrap", secerr.CryptoSessionDecryptFailed, err)
	}

	if envelope.Header.Version == binformat.Version2 {
		payload, err = binformat.Unpad(payload)
		if err != nil {
			return nil, secerr.New(secerr.KindSessionUnreadable, "session_unwrap", err)
		}
	}

	if envelope.Header.Flags.Compressed() {
		decompressed, err := decompress(payload)
		if err != nil {
			return nil, secerr.New(secerr.KindSessionUnreadable, "session_unwrap", err)
		}
		payload = decompressed
	}

	return payload, nil
}

func tryCompress(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(sessionLZ4Level)); err != nil {
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
