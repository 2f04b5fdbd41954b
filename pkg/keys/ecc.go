package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// wrappedKeyRawLen is the length of a wrapped key's raw sealed bytes: a
// 32-byte key plus the 16-byte secretbox authenticator.
const wrappedKeyRawLen = KeySize + 16 // 48

// ToHex serializes w as a Reed-Solomon-protected hex string, suitable for
// printing to the user or storing in a keyset file. The wire/header form
// (used in block and session framing) is the shorter, unprotected Bytes().
func (w WrappedKey) ToHex() string {
	encoded := rsEncode(w.bytes)
	return hex.EncodeToString(encoded)
}

// FromHex parses a wrapped key previously produced by ToHex, or a legacy
// unprotected 48-byte hex string. ECC-protected input that is correctable is
// corrected transparently; input with more errors than the code can
// guarantee to fix returns a KindKeyCorrupted error.
func FromHex(s string, t Type) (WrappedKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return WrappedKey{}, secerr.NewCrypto("key_decode", secerr.CryptoKeyInvalid, err)
	}

	switch len(raw) {
	case wrappedKeyRawLen:
		return WrappedKey{bytes: raw, typ: t, legacy: true}, nil
	case rsTotalLen:
		data, _, err := rsDecode(raw)
		if err != nil {
			return WrappedKey{}, secerr.New(secerr.KindKeyCorrupted, "key_decode", err)
		}
		return WrappedKey{bytes: data, typ: t}, nil
	default:
		return WrappedKey{}, secerr.NewCrypto("key_decode", secerr.CryptoKeyInvalid,
			fmt.Errorf("unexpected wrapped key length after hex decode: %d", len(raw)))
	}
}
