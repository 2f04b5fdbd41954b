package keys

// Keyset is the unwrapped set of working keys an account needs for sync and
// restore: the Main key for content encryption, the HMAC key for block
// naming/dedup, and the Tweak key for seeding the rolling-hash chunker.
// HasECC is false if any member key was read back from a pre-ECC, 48-byte
// legacy wrapped form (see WrappedKeyset.HasECC).
type Keyset struct {
	Master Key
	Main   Key
	HMAC   Key
	Tweak  Key
	HasECC bool
}

// WrappedKeyset is the on-disk/persisted form of a Keyset: Master wrapped
// under the account's recovery key, and Main/HMAC/Tweak each wrapped under
// Master. None of these carry an explicit nonce field because their nonces
// are fixed by key type. HasECC is true only when every member key was
// decoded with its Reed-Solomon parity bytes intact; a keyset with even one
// legacy (48-byte) member is flagged non-ECC as a whole.
type WrappedKeyset struct {
	Master WrappedKey
	Main   WrappedKey
	HMAC   WrappedKey
	Tweak  WrappedKey
	HasECC bool
}

// NewKeyset generates a fresh recovery phrase and a full key hierarchy under
// it, returning the phrase (to be shown to the user exactly once) alongside
// the wrapped keyset to persist.
func NewKeyset() (phrase string, wks WrappedKeyset, err error) {
	phrase, recoveryKey, err := NewRecoveryPhrase()
	if err != nil {
		return "", WrappedKeyset{}, err
	}

	master, err := NewKey(TypeMaster)
	if err != nil {
		return "", WrappedKeyset{}, err
	}
	main, err := NewKey(TypeMain)
	if err != nil {
		return "", WrappedKeyset{}, err
	}
	hmacKey, err := NewKey(TypeHMAC)
	if err != nil {
		return "", WrappedKeyset{}, err
	}
	tweak, err := NewKey(TypeTweak)
	if err != nil {
		return "", WrappedKeyset{}, err
	}

	wrappedMaster, err := master.Wrap(recoveryKey, nil)
	if err != nil {
		return "", WrappedKeyset{}, err
	}
	wrappedMain, err := main.Wrap(master, nil)
	if err != nil {
		return "", WrappedKeyset{}, err
	}
	wrappedHMAC, err := hmacKey.Wrap(master, nil)
	if err != nil {
		return "", WrappedKeyset{}, err
	}
	wrappedTweak, err := tweak.Wrap(master, nil)
	if err != nil {
		return "", WrappedKeyset{}, err
	}

	return phrase, WrappedKeyset{
		Master: wrappedMaster,
		Main:   wrappedMain,
		HMAC:   wrappedHMAC,
		Tweak:  wrappedTweak,
		HasECC: true,
	}, nil
}

// Unwrap recovers the working Keyset from wks using the account's recovery
// phrase. An invalid phrase or a phrase that does not match this keyset
// surfaces as a CryptoError (RecoveryPhraseInvalid / RecoveryPhraseIncorrect
// respectively).
func (wks WrappedKeyset) Unwrap(phrase string) (Keyset, error) {
	recoveryKey, err := RecoveryKeyFromPhrase(phrase)
	if err != nil {
		return Keyset{}, err
	}

	master, err := wks.Master.Unwrap(recoveryKey, nil)
	if err != nil {
		return Keyset{}, err
	}
	main, err := wks.Main.Unwrap(master, nil)
	if err != nil {
		return Keyset{}, err
	}
	hmacKey, err := wks.HMAC.Unwrap(master, nil)
	if err != nil {
		return Keyset{}, err
	}
	tweak, err := wks.Tweak.Unwrap(master, nil)
	if err != nil {
		return Keyset{}, err
	}

	return Keyset{Master: master, Main: main, HMAC: hmacKey, Tweak: tweak, HasECC: wks.HasECC}, nil
}

// ToHexMap serializes every wrapped key in the set as an ECC-protected hex
// string, keyed by role, for writing to the keyset file.
func (wks WrappedKeyset) ToHexMap() map[string]string {
	return map[string]string{
		"master": wks.Master.ToHex(),
		"main":   wks.Main.ToHex(),
		"hmac":   wks.HMAC.ToHex(),
		"tweak":  wks.Tweak.ToHex(),
	}
}

// WrappedKeysetFromHexMap parses a keyset previously produced by ToHexMap.
func WrappedKeysetFromHexMap(m map[string]string) (WrappedKeyset, error) {
	master, err := FromHex(m["master"], TypeMaster)
	if err != nil {
		return WrappedKeyset{}, err
	}
	main, err := FromHex(m["main"], TypeMain)
	if err != nil {
		return WrappedKeyset{}, err
	}
	hmacKey, err := FromHex(m["hmac"], TypeHMAC)
	if err != nil {
		return WrappedKeyset{}, err
	}
	tweak, err := FromHex(m["tweak"], TypeTweak)
	if err != nil {
		return WrappedKeyset{}, err
	}
	hasECC := !master.Legacy() && !main.Legacy() && !hmacKey.Legacy() && !tweak.Legacy()
	return WrappedKeyset{Master: master, Main: main, HMAC: hmacKey, Tweak: tweak, HasECC: hasECC}, nil
}
