// Package keys implements the SafeDrive key hierarchy (C1): a BIP-39
// recovery phrase wraps a random Master key, which in turn wraps the Main,
// HMAC, and Tweak keys used by the rest of the engine. All symmetric keys
// are 32 bytes; wrapping uses NaCl-style secretbox (XSalsa20-Poly1305)
// authenticated encryption with either a fixed per-key-type nonce (Master/
// Main/HMAC/Tweak) or a caller-supplied nonce (Block/Session).
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// KeySize is the length in bytes of every key in the hierarchy.
const KeySize = 32

// NonceSize is the length in bytes of a secretbox nonce.
const NonceSize = 24

// Type identifies a key's role, which in turn determines its nonce policy.
type Type int

const (
	TypeMaster Type = iota
	TypeMain
	TypeHMAC
	TypeTweak
	TypeRecovery
	TypeSession
	TypeBlock
)

func (t Type) String() string {
	switch t {
	case TypeMaster:
		return "Master"
	case TypeMain:
		return "Main"
	case TypeHMAC:
		return "HMAC"
	case TypeTweak:
		return "Tweak"
	case TypeRecovery:
		return "Recovery"
	case TypeSession:
		return "Session"
	case TypeBlock:
		return "Block"
	default:
		return "Unknown"
	}
}

// staticNonce returns the fixed wrapping nonce for key types that are only
// ever used to wrap a single, fixed key (making nonce reuse safe), or nil
// for types that require a caller-supplied nonce.
func (t Type) staticNonce() *[NonceSize]byte {
	var n [NonceSize]byte
	switch t {
	case TypeMaster:
		fill(&n, 1)
	case TypeMain:
		fill(&n, 2)
	case TypeHMAC:
		fill(&n, 3)
	case TypeTweak:
		fill(&n, 4)
	default:
		return nil
	}
	return &n
}

func fill(n *[NonceSize]byte, b byte) {
	for i := range n {
		n[i] = b
	}
}

// Key is a 32-byte symmetric key tagged with its role.
type Key struct {
	bytes [KeySize]byte
	typ   Type
}

// NewKey generates a fresh random key of the given type.
func NewKey(t Type) (Key, error) {
	var b [KeySize]byte
	if _, err := rand.Read(b[:]); err != nil {
		return Key{}, secerr.NewCrypto("key_generate", secerr.CryptoKeyGenerationFailed, err)
	}
	return Key{bytes: b, typ: t}, nil
}

// keyFromBytes builds a Key from existing bytes, validating its length.
func keyFromBytes(b []byte, t Type) (Key, error) {
	if len(b) != KeySize {
		return Key{}, secerr.NewCrypto("key_decode", secerr.CryptoKeyInvalid,
			fmt.Errorf("expected %d key bytes, got %d", KeySize, len(b)))
	}
	var k Key
	copy(k.bytes[:], b)
	k.typ = t
	return k, nil
}

// Type reports the key's role.
func (k Key) Type() Type { return k.typ }

// Bytes returns a copy of the raw 32 key bytes; mutating the result does
// not affect k.
func (k Key) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.bytes[:])
	return out
}

// AsHMACKey returns the key bytes for use as an HMAC-SHA256 key (v1 block
// naming).
func (k Key) AsHMACKey() []byte {
	return k.Bytes()
}

// AsBlake2Key returns the first n bytes of the key for use as a truncated
// blake2b key, mirroring the original implementation's as_blake2_64/128/
// 192/256 accessors. n must be <= KeySize.
func (k Key) AsBlake2Key(n int) []byte {
	if n > KeySize {
		n = KeySize
	}
	return append([]byte(nil), k.bytes[:n]...)
}

// recoveryPhraseFromSeed hashes a BIP-39 seed (64 bytes, passphrase "") down
// to a 32-byte recovery key, matching the original implementation's
// sha256(mnemonic.seed).
func recoveryPhraseFromSeed(seed []byte) Key {
	h := sha256.Sum256(seed)
	return Key{bytes: h, typ: TypeRecovery}
}

// NewRecoveryPhrase generates fresh 128-bit BIP-39 entropy and derives the
// recovery phrase and recovery key from it.
func NewRecoveryPhrase() (phrase string, recoveryKey Key, err error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", Key{}, secerr.NewCrypto("recovery_phrase_generate", secerr.CryptoKeyGenerationFailed, err)
	}
	phrase, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", Key{}, secerr.NewCrypto("recovery_phrase_generate", secerr.CryptoKeyGenerationFailed, err)
	}
	seed := bip39.NewSeed(phrase, "")
	return phrase, recoveryPhraseFromSeed(seed), nil
}

// RecoveryKeyFromPhrase validates a BIP-39 mnemonic and derives its
// recovery key. It does not verify the key against any wrapped keyset; call
// Unwrap with the result to do that.
func RecoveryKeyFromPhrase(phrase string) (Key, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return Key{}, secerr.NewCrypto("recovery_phrase_parse", secerr.CryptoRecoveryPhraseInvalid,
			fmt.Errorf("invalid BIP-39 mnemonic"))
	}
	seed := bip39.NewSeed(phrase, "")
	return recoveryPhraseFromSeed(seed), nil
}

// Wrap seals k under wrappingKey, producing a 48-byte authenticated
// ciphertext. Master/Main/HMAC/Tweak keys use a fixed, type-derived nonce
// and nonce must be nil; Block/Session keys require an explicit nonce.
func (k Key) Wrap(wrappingKey Key, nonce *[NonceSize]byte) (WrappedKey, error) {
	n, err := k.typ.resolveNonce(nonce)
	if err != nil {
		return WrappedKey{}, err
	}

	var wrappingKeyArr [KeySize]byte
	copy(wrappingKeyArr[:], wrappingKey.bytes[:])

	sealed := secretbox.Seal(nil, k.bytes[:], n, &wrappingKeyArr)
	return WrappedKey{bytes: sealed, typ: k.typ}, nil
}

// resolveNonce returns the nonce to use for wrapping/unwrapping this key
// type, enforcing the "never a random nonce for static types, never a
// missing nonce for dynamic types" rule.
func (t Type) resolveNonce(supplied *[NonceSize]byte) (*[NonceSize]byte, error) {
	if static := t.staticNonce(); static != nil {
		return static, nil
	}
	if supplied == nil {
		return nil, secerr.New(secerr.KindInternal, "key_wrap",
			fmt.Errorf("key type %s requires an explicit nonce", t))
	}
	return supplied, nil
}

// WrappedKey is a sealed key as it appears on the wire or on disk: 48 bytes
// (32-byte key + 16-byte secretbox tag) for the in-memory / wire form; see
// ToHex/FromHex for the Reed-Solomon-protected persisted form.
type WrappedKey struct {
	bytes  []byte
	typ    Type
	legacy bool // decoded from a pre-ECC 48-byte hex blob, no parity bytes
}

// Legacy reports whether this key was decoded from a pre-ECC, 48-byte hex
// blob lacking Reed-Solomon parity bytes. Only meaningful for a WrappedKey
// produced by FromHex.
func (w WrappedKey) Legacy() bool { return w.legacy }

// WrappedKeyFromBytes wraps raw (already-sealed) bytes without applying or
// expecting ECC, for constructing a WrappedKey read directly off the wire
// (block/session headers carry the 48-byte form with no ECC).
func WrappedKeyFromBytes(b []byte, t Type) WrappedKey {
	return WrappedKey{bytes: append([]byte(nil), b...), typ: t}
}

// Bytes returns the raw sealed bytes (48 bytes for a well-formed key).
func (w WrappedKey) Bytes() []byte {
	return append([]byte(nil), w.bytes...)
}

// Type reports the wrapped key's role.
func (w WrappedKey) Type() Type { return w.typ }

// Unwrap opens w under wrappingKey, returning the original key. A failure
// to authenticate is surfaced as RecoveryPhraseIncorrect, matching the
// common case of this being called with the wrong wrapping key/phrase.
func (w WrappedKey) Unwrap(wrappingKey Key, nonce *[NonceSize]byte) (Key, error) {
	n, err := w.typ.resolveNonce(nonce)
	if err != nil {
		return Key{}, err
	}

	var wrappingKeyArr [KeySize]byte
	copy(wrappingKeyArr[:], wrappingKey.bytes[:])

	opened, ok := secretbox.Open(nil, w.bytes, n, &wrappingKeyArr)
	if !ok {
		return Key{}, secerr.NewCrypto("key_unwrap", secerr.CryptoRecoveryPhraseIncorrect, nil)
	}
	return keyFromBytes(opened, w.typ)
}
