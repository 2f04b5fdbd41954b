package session

import (
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/safedrive/safedrive-engine/pkg/keys"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

func seal(payload []byte, nonce [keys.NonceSize]byte, key keys.Key) []byte {
	var keyArr [keys.KeySize]byte
	copy(keyArr[:], key.Bytes())
	return secretbox.Seal(nil, payload, &nonce, &keyArr)
}

func open(wrapped []byte, nonce [keys.NonceSize]byte, key keys.Key) ([]byte, error) {
	var keyArr [keys.KeySize]byte
	copy(keyArr[:], key.Bytes())
	opened, ok := secretbox.Open(nil, wrapped, &nonce, &keyArr)
	if !ok {
		return nil, secerr.New(secerr.KindCrypto, "secretbox_open", nil)
	}
	return opened, nil
}
