package secerr

import "fmt"

// CryptoSubkind enumerates the cryptographic failure subkinds nested under
// KindCrypto, mirroring the distinct ways key handling, wrapping, and
// sealing can fail.
type CryptoSubkind int

const (
	// CryptoKeyInvalid marks a key that fails basic structural validation
	// (wrong length, wrong version byte).
	CryptoKeyInvalid CryptoSubkind = iota
	// CryptoKeyCorrupted marks a wrapped key whose Reed-Solomon parity could
	// not correct the observed errors.
	CryptoKeyCorrupted
	// CryptoRecoveryPhraseInvalid marks a mnemonic that fails BIP-39
	// checksum or word-list validation.
	CryptoRecoveryPhraseInvalid
	// CryptoRecoveryPhraseIncorrect marks a syntactically valid phrase that
	// fails to unwrap the stored keyset (wrong phrase for this account).
	CryptoRecoveryPhraseIncorrect
	// CryptoKeyGenerationFailed marks failure to source entropy for a new key.
	CryptoKeyGenerationFailed
	// CryptoKeyWrapFailed marks a secretbox seal failure while wrapping a key.
	CryptoKeyWrapFailed
	// CryptoBlockDecryptFailed marks a secretbox open failure while unwrapping a block.
	CryptoBlockDecryptFailed
	// CryptoBlockEncryptFailed marks a secretbox seal failure while sealing a block.
	CryptoBlockEncryptFailed
	// CryptoSessionDecryptFailed marks a secretbox open failure while unwrapping a sync session.
	CryptoSessionDecryptFailed
	// CryptoSessionEncryptFailed marks a secretbox seal failure while sealing a sync session.
	CryptoSessionEncryptFailed
)

func (s CryptoSubkind) String() string {
	switch s {
	case CryptoKeyInvalid:
		return "KeyInvalid"
	case CryptoKeyCorrupted:
		return "KeyCorrupted"
	case CryptoRecoveryPhraseInvalid:
		return "RecoveryPhraseInvalid"
	case CryptoRecoveryPhraseIncorrect:
		return "RecoveryPhraseIncorrect"
	case CryptoKeyGenerationFailed:
		return "KeyGenerationFailed"
	case CryptoKeyWrapFailed:
		return "KeyWrapFailed"
	case CryptoBlockDecryptFailed:
		return "BlockDecryptFailed"
	case CryptoBlockEncryptFailed:
		return "BlockEncryptFailed"
	case CryptoSessionDecryptFailed:
		return "SessionDecryptFailed"
	case CryptoSessionEncryptFailed:
		return "SessionEncryptFailed"
	default:
		return "Unknown"
	}
}

// CryptoError is the nested error type carried inside Error.Err when
// Error.Kind == KindCrypto.
type CryptoError struct {
	Subkind CryptoSubkind
	Err     error // e.g. the underlying bip39 validation error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: %s: %s", e.Subkind, e.Err)
	}
	return fmt.Sprintf("crypto: %s", e.Subkind)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NewCrypto builds an *Error of KindCrypto wrapping a CryptoError of the
// given subkind.
func NewCrypto(op string, subkind CryptoSubkind, err error) *Error {
	return New(KindCrypto, op, &CryptoError{Subkind: subkind, Err: err})
}

// KeychainSubkind enumerates secret-store failure subkinds nested under
// KindKeychain.
type KeychainSubkind int

const (
	// KeychainErrorKind is a generic, backend-reported keychain error.
	KeychainErrorKind KeychainSubkind = iota
	// KeychainUnavailable marks no keychain backend found on this platform.
	KeychainUnavailable
	// KeychainItemMissing marks the requested item not present in the keychain.
	KeychainItemMissing
	// KeychainInsertFailed marks failure to write an item to the keychain.
	KeychainInsertFailed
	// KeychainEncoding marks failure encoding/decoding a keychain item's contents.
	KeychainEncoding
)

func (s KeychainSubkind) String() string {
	switch s {
	case KeychainErrorKind:
		return "KeychainError"
	case KeychainUnavailable:
		return "KeychainUnavailable"
	case KeychainItemMissing:
		return "KeychainItemMissing"
	case KeychainInsertFailed:
		return "KeychainInsertFailed"
	case KeychainEncoding:
		return "KeychainEncoding"
	default:
		return "Unknown"
	}
}

// KeychainError is the nested error type carried inside Error.Err when
// Error.Kind == KindKeychain.
type KeychainError struct {
	Subkind KeychainSubkind
	Err     error
}

func (e *KeychainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keychain: %s: %s", e.Subkind, e.Err)
	}
	return fmt.Sprintf("keychain: %s", e.Subkind)
}

func (e *KeychainError) Unwrap() error { return e.Err }

// NewKeychain builds an *Error of KindKeychain wrapping a KeychainError of
// the given subkind.
func NewKeychain(op string, subkind KeychainSubkind, err error) *Error {
	return New(KindKeychain, op, &KeychainError{Subkind: subkind, Err: err})
}
