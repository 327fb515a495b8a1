package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/projectauth/pkg/totp"
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

// testClock is a settable time source.
type testClock struct{ t time.Time }

func newTestClock() *testClock { return &testClock{t: testNow} }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testKeys(t *testing.T) *Keys {
	t.Helper()
	keys, err := NewKeys(Config{
		SigningSecret: "test-signing-secret",
		EncryptionKey: "test-encryption-key",
	}, nil)
	require.NoError(t, err)
	return keys
}

func testUser(t *testing.T) *User {
	t.Helper()
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	return &User{
		ID:           "u1",
		Email:        "a@x.com",
		Name:         "Alice",
		PasswordHash: hash,
	}
}

// enrolledUser returns a user with TOTP persisted and its plain secret.
func enrolledUser(t *testing.T, keys *Keys) (*User, string) {
	t.Helper()
	key, err := totp.GenerateSecret(totp.SecretParams{Issuer: "Test", AccountName: "a@x.com"})
	require.NoError(t, err)
	encrypted, err := keys.cipher.Encrypt(key.Secret)
	require.NoError(t, err)

	u := testUser(t)
	u.TOTP = PersistedTOTP(encrypted)
	return u, key.Secret
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeAt(secret, at)
	require.NoError(t, err)
	return code
}
