package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

// ivSize is the per-call random IV length. GCM is built with a matching
// nonce size so the IV is used as-is.
const ivSize = 16

// Cipher seals and opens secrets with a key derived once at construction.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New derives an AES-256 key from keyMaterial and returns a ready Cipher.
func New(keyMaterial string, opts ...Option) (*Cipher, error) {
	if keyMaterial == "" {
		return nil, ErrEmptyKey
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	key, err := deriveKey([]byte(keyMaterial), o)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt returns "iv_hex:ciphertext_hex" for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed input, wrong key or tampered
// ciphertext yields ErrDecryptionFailed and no output.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", errors.Join(ErrDecryptionFailed, ErrInvalidCiphertext)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", errors.Join(ErrDecryptionFailed, ErrInvalidCiphertext)
	}

	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) < c.aead.Overhead() {
		return "", errors.Join(ErrDecryptionFailed, ErrInvalidCiphertext)
	}

	plain, err := c.aead.Open(nil, iv, data, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	return string(plain), nil
}

// Encrypt is a one-off helper around New(key).Encrypt.
func Encrypt(plaintext, key string) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt is a one-off helper around New(key).Decrypt.
func Decrypt(ciphertext, key string) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return c.Decrypt(ciphertext)
}
