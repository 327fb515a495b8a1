// Package storetest holds the behavior every auth.UserStore must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/projectauth/pkg/auth"
)

// Store is a UserStore a test can seed.
type Store interface {
	auth.UserStore
	CreateUser(ctx context.Context, u auth.User) (*auth.User, error)
}

// Run exercises s. Each run seeds its own user so backends may be shared
// between tests. errEmailTaken is the backend's duplicate-address error.
func Run(t *testing.T, s Store, errEmailTaken error) {
	t.Helper()
	ctx := context.Background()

	email := "Alice+" + time.Now().Format("150405.000000000") + "@X.com"
	u, err := s.CreateUser(ctx, auth.User{Email: " " + email + " ", Name: "Alice", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	assert.Equal(t, auth.NormalizeEmail(email), u.Email)
	assert.Equal(t, auth.TOTPUnset, u.TOTP.State())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := s.CreateUser(ctx, auth.User{Email: email})
		assert.ErrorIs(t, err, errEmailTaken)
	})

	t.Run("lookup", func(t *testing.T) {
		got, err := s.GetUserByEmail(ctx, "  "+email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, "hash", got.PasswordHash)

		_, err = s.GetUserByID(ctx, "missing-"+u.ID)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
		_, err = s.GetUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("mutations on missing user", func(t *testing.T) {
		missing := "missing-" + u.ID
		assert.ErrorIs(t, s.SetVerificationToken(ctx, missing, "t", time.Now()), auth.ErrUserNotFound)
		assert.ErrorIs(t, s.MarkEmailVerified(ctx, missing), auth.ErrUserNotFound)
		assert.ErrorIs(t, s.EnableTOTP(ctx, missing, "c"), auth.ErrUserNotFound)
		assert.ErrorIs(t, s.DisableTOTP(ctx, missing), auth.ErrUserNotFound)
		assert.ErrorIs(t, s.SetEmailTwoFactor(ctx, missing, true), auth.ErrUserNotFound)
	})

	t.Run("verification fields", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
		require.NoError(t, s.SetVerificationToken(ctx, u.ID, "first", exp))
		require.NoError(t, s.SetVerificationToken(ctx, u.ID, "second", exp))

		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.VerificationToken)
		require.NotNil(t, got.VerificationTokenExpires)
		assert.Equal(t, "second", *got.VerificationToken)
		assert.True(t, exp.Equal(*got.VerificationTokenExpires))
		assert.False(t, got.EmailVerified)

		require.NoError(t, s.MarkEmailVerified(ctx, u.ID))
		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.EmailVerified)
		assert.Nil(t, got.VerificationToken)
		assert.Nil(t, got.VerificationTokenExpires)
	})

	t.Run("totp columns move together", func(t *testing.T) {
		before, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)

		require.NoError(t, s.EnableTOTP(ctx, u.ID, "ciphertext"))
		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.TOTP.Enabled())
		assert.Equal(t, "ciphertext", got.TOTP.Ciphertext())
		assert.False(t, got.UpdatedAt.Before(before.UpdatedAt), "updated_at moves forward")

		require.NoError(t, s.DisableTOTP(ctx, u.ID))
		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.TOTPUnset, got.TOTP.State())
		secret, enabled := got.TOTP.Columns()
		assert.Nil(t, secret)
		assert.False(t, enabled)
	})

	t.Run("email factor", func(t *testing.T) {
		require.NoError(t, s.SetEmailTwoFactor(ctx, u.ID, true))
		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.EmailTwoFactor)
		assert.True(t, got.SecondFactorEnabled())

		require.NoError(t, s.SetEmailTwoFactor(ctx, u.ID, false))
		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.EmailTwoFactor)
	})
}
