// Package secrets encrypts short secrets, such as TOTP shared keys, for storage
// at rest and for transport inside cookies.
//
// A Cipher is built once from process-wide key material. The material is
// hashed into a 32-byte AES-256 key (SHA-256 by default, HKDF-SHA-256 when
// WithHKDF is supplied). Every call to Encrypt draws a fresh random 16-byte
// IV and seals the plaintext with AES-GCM, so ciphertexts are authenticated:
// a wrong key or a truncated ciphertext fails with ErrDecryptionFailed rather
// than producing garbage.
//
// The encoded form is
//
//	hex(iv) ":" hex(ciphertext||tag)
//
// # Usage
//
//	c, err := secrets.New(os.Getenv("AUTH_ENCRYPTION_KEY"))
//	if err != nil {
//	    // handle error
//	}
//
//	ct, err := c.Encrypt("JBSWY3DPEHPK3PXP")
//	plain, err := c.Decrypt(ct)
//
// The package level Encrypt and Decrypt helpers build a throwaway Cipher with
// default options for one-off calls.
//
// # Error Handling
//
// Errors wrap the package sentinels ErrEmptyKey, ErrEncryptionFailed and
// ErrDecryptionFailed; match them with errors.Is.
package secrets
