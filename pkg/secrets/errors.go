package secrets

import "errors"

var (
	ErrEmptyKey          = errors.New("secrets: empty key material")
	ErrEncryptionFailed  = errors.New("secrets: encryption failed")
	ErrDecryptionFailed  = errors.New("secrets: decryption failed")
	ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext format")
)
