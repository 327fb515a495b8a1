package secrets

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the derived key size for AES-256.
const KeySize = 32

// Option configures key derivation for a Cipher.
type Option func(*options)

type options struct {
	hkdf bool
	salt []byte
	info []byte
}

// WithHKDF derives the AES key with HKDF-SHA-256 instead of a bare SHA-256
// digest. Ciphertexts produced with different derivations are not
// interchangeable.
func WithHKDF(salt, info string) Option {
	return func(o *options) {
		o.hkdf = true
		o.salt = []byte(salt)
		o.info = []byte(info)
	}
}

func deriveKey(material []byte, o options) ([]byte, error) {
	if !o.hkdf {
		sum := sha256.Sum256(material)
		return sum[:], nil
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, o.salt, o.info), key); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return key, nil
}
