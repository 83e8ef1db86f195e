package adaptor

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	KeyPrefix    = "ra_"
	keyDigestLen = 20
	keySeedLen   = 32
)

// KeyIssuer derives adaptor API keys from random bytes.
type KeyIssuer struct {
	random io.Reader
}

func NewKeyIssuer(random io.Reader) *KeyIssuer {
	if random == nil {
		random = rand.Reader
	}
	return &KeyIssuer{random: random}
}

// DeriveKey is the fixed prefix followed by the first characters of the
// seed's SHA-1 hex digest.
func DeriveKey(seed []byte) string {
	sum := sha1.Sum(seed)
	return KeyPrefix + hex.EncodeToString(sum[:])[:keyDigestLen]
}

func (k *KeyIssuer) NewKey() (string, error) {
	seed := make([]byte, keySeedLen)
	if _, err := io.ReadFull(k.random, seed); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return DeriveKey(seed), nil
}

func (k *KeyIssuer) RenewKey(a *RemoteAdaptor) error {
	key, err := k.NewKey()
	if err != nil {
		return err
	}
	a.APIKey = key
	return nil
}
