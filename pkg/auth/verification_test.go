package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// requestToken runs RequestVerification for u and returns the stored token.
func requestToken(t *testing.T, svc *EmailVerificationService, store *MockUserStore, u *User) string {
	t.Helper()
	var token string
	var expires time.Time
	store.On("GetUserByEmail", mock.Anything, u.Email).Return(u, nil).Once()
	store.On("SetVerificationToken", mock.Anything, u.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			token = args.String(2)
			expires = args.Get(3).(time.Time)
		}).
		Return(nil).Once()

	_, err := svc.RequestVerification(context.Background(), u.Email, "en")
	require.NoError(t, err)
	u.VerificationToken = &token
	u.VerificationTokenExpires = &expires
	return token
}

func TestRequestVerification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := &MockUserStore{}
	mailer := &MockMailer{}
	u := testUser(t)

	var sent VerificationMail
	mailer.On("SendVerification", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(VerificationMail) }).
		Return(nil)
	store.On("GetUserByEmail", mock.Anything, "a@x.com").Return(u, nil)
	store.On("SetVerificationToken", mock.Anything, "u1", mock.Anything, testNow.Add(24*time.Hour)).Return(nil)

	svc := NewEmailVerificationService(testKeys(t), store, mailer, WithClock(clock.Now))
	res, err := svc.RequestVerification(ctx, "  A@X.com ", "de-CH")
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, testNow.Add(24*time.Hour), res.ExpiresAt)

	assert.Equal(t, "a@x.com", sent.To)
	assert.Equal(t, "Alice", sent.Name)
	assert.Equal(t, "de-CH", sent.Locale)
	require.True(t, strings.HasPrefix(sent.Link, "http://localhost:8080/verify?token="))

	link, err := url.Parse(sent.Link)
	require.NoError(t, err)
	stored := store.Calls[1].Arguments.String(2)
	assert.Equal(t, stored, link.Query().Get("token"))
}

func TestRequestVerification_AlreadyVerified(t *testing.T) {
	t.Parallel()
	store := &MockUserStore{}
	mailer := &MockMailer{}
	u := testUser(t)
	u.EmailVerified = true
	store.On("GetUserByEmail", mock.Anything, "a@x.com").Return(u, nil)

	res, err := NewEmailVerificationService(testKeys(t), store, mailer).
		RequestVerification(context.Background(), "a@x.com", "en")
	require.NoError(t, err)
	assert.False(t, res.Sent)
	store.AssertNotCalled(t, "SetVerificationToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything)
}

func TestRequestVerification_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()
		svc := NewEmailVerificationService(testKeys(t), &MockUserStore{}, &MockMailer{})
		_, err := svc.RequestVerification(ctx, "not-an-email", "en")
		require.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		store.On("GetUserByEmail", mock.Anything, "b@x.com").Return(nil, ErrUserNotFound)
		svc := NewEmailVerificationService(testKeys(t), store, &MockMailer{})
		_, err := svc.RequestVerification(ctx, "b@x.com", "en")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("store update fails", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		store.On("GetUserByEmail", mock.Anything, "a@x.com").Return(testUser(t), nil)
		store.On("SetVerificationToken", mock.Anything, "u1", mock.Anything, mock.Anything).Return(boom)
		svc := NewEmailVerificationService(testKeys(t), store, mailer)
		_, err := svc.RequestVerification(ctx, "a@x.com", "en")
		require.ErrorIs(t, err, ErrUpdateFailed)
		mailer.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything)
	})

	t.Run("mail fails", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		store.On("GetUserByEmail", mock.Anything, "a@x.com").Return(testUser(t), nil)
		store.On("SetVerificationToken", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(boom)
		svc := NewEmailVerificationService(testKeys(t), store, mailer)
		_, err := svc.RequestVerification(ctx, "a@x.com", "en")
		require.ErrorIs(t, err, ErrMailFailed)
		require.ErrorIs(t, err, boom)
	})

	t.Run("no keys", func(t *testing.T) {
		t.Parallel()
		svc := NewEmailVerificationService(nil, &MockUserStore{}, &MockMailer{})
		_, err := svc.RequestVerification(ctx, "a@x.com", "en")
		require.ErrorIs(t, err, ErrConfig)
		_, err = svc.ConfirmVerification(ctx, "x")
		require.ErrorIs(t, err, ErrConfig)
	})
}

func TestConfirmVerification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := &MockUserStore{}
	mailer := &MockMailer{}
	mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
	svc := NewEmailVerificationService(testKeys(t), store, mailer, WithClock(clock.Now))

	u := testUser(t)
	token := requestToken(t, svc, store, u)

	store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
	store.On("MarkEmailVerified", mock.Anything, "u1").Return(nil).Once()

	clock.Advance(time.Hour)
	res, err := svc.ConfirmVerification(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)
	assert.False(t, res.AlreadyVerified)
	assert.Equal(t, "http://localhost:8080/dashboard", res.RedirectURL)

	u.EmailVerified = true
	res, err = svc.ConfirmVerification(ctx, token)
	require.NoError(t, err)
	assert.True(t, res.AlreadyVerified)
	store.AssertNumberOfCalls(t, "MarkEmailVerified", 1)
}

func TestConfirmVerification_Rejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("superseded token", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
		clock := newTestClock()
		svc := NewEmailVerificationService(testKeys(t), store, mailer, WithClock(clock.Now))

		u := testUser(t)
		first := requestToken(t, svc, store, u)
		clock.Advance(time.Second)
		second := requestToken(t, svc, store, u)
		require.NotEqual(t, first, second)

		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
		store.On("MarkEmailVerified", mock.Anything, "u1").Return(nil)

		_, err := svc.ConfirmVerification(ctx, first)
		require.ErrorIs(t, err, ErrTokenInvalid)
		store.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)

		_, err = svc.ConfirmVerification(ctx, second)
		require.NoError(t, err)
	})

	t.Run("signed token expired", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
		clock := newTestClock()
		svc := NewEmailVerificationService(testKeys(t), store, mailer, WithClock(clock.Now))
		token := requestToken(t, svc, store, testUser(t))

		clock.Advance(24 * time.Hour)
		_, err := svc.ConfirmVerification(ctx, token)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("persisted expiry is authoritative", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
		clock := newTestClock()
		svc := NewEmailVerificationService(testKeys(t), store, mailer, WithClock(clock.Now))
		u := testUser(t)
		token := requestToken(t, svc, store, u)

		shortened := testNow.Add(time.Hour)
		u.VerificationTokenExpires = &shortened
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)

		clock.Advance(time.Hour)
		_, err := svc.ConfirmVerification(ctx, token)
		require.ErrorIs(t, err, ErrTokenExpired)

		u.VerificationTokenExpires = nil
		_, err = svc.ConfirmVerification(ctx, token)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("email changed since request", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
		svc := NewEmailVerificationService(testKeys(t), store, mailer, WithClock(newTestClock().Now))
		u := testUser(t)
		token := requestToken(t, svc, store, u)

		changed := *u
		changed.Email = "new@x.com"
		store.On("GetUserByID", mock.Anything, "u1").Return(&changed, nil)

		_, err := svc.ConfirmVerification(ctx, token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("user deleted", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
		svc := NewEmailVerificationService(testKeys(t), store, mailer)
		token := requestToken(t, svc, store, testUser(t))
		store.On("GetUserByID", mock.Anything, "u1").Return(nil, ErrUserNotFound)

		_, err := svc.ConfirmVerification(ctx, token)
		require.ErrorIs(t, err, ErrTokenInvalid)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("mark verified fails", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		mailer := &MockMailer{}
		mailer.On("SendVerification", mock.Anything, mock.Anything).Return(nil)
		svc := NewEmailVerificationService(testKeys(t), store, mailer)
		u := testUser(t)
		token := requestToken(t, svc, store, u)
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
		store.On("MarkEmailVerified", mock.Anything, "u1").Return(errors.New("db down"))

		_, err := svc.ConfirmVerification(ctx, token)
		require.ErrorIs(t, err, ErrUpdateFailed)
	})

	t.Run("session token is not a verification token", func(t *testing.T) {
		t.Parallel()
		keys := testKeys(t)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil)
		issued, err := NewTokenService(keys, store).IssueToken(ctx, "u1")
		require.NoError(t, err)

		_, err = NewEmailVerificationService(keys, store, &MockMailer{}).ConfirmVerification(ctx, issued.Token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := NewEmailVerificationService(testKeys(t), &MockUserStore{}, &MockMailer{}).
			ConfirmVerification(ctx, "garbage")
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}
