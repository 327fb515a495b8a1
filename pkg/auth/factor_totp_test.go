package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// wrongCode returns a well-formed code that differs from code.
func wrongCode(code string) string {
	last := code[len(code)-1]
	if last == '9' {
		return code[:len(code)-1] + "0"
	}
	return code[:len(code)-1] + string(last+1)
}

func TestTOTP_EnrollmentRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	keys := testKeys(t)
	store := &MockUserStore{}
	u := testUser(t)
	store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)

	var persisted string
	store.On("EnableTOTP", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.String(2) }).
		Return(nil).Once()

	svc := NewTOTPService(keys, store, WithClock(clock.Now))
	caller := Identity{UserID: "u1"}

	enrollment, err := svc.BeginEnrollment(ctx, caller, "u1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))
	assert.NotEmpty(t, enrollment.Secret)
	assert.NotContains(t, enrollment.Staged, enrollment.Secret)
	assert.Equal(t, testNow.Add(15*time.Minute), enrollment.ExpiresAt)
	store.AssertNotCalled(t, "EnableTOTP", mock.Anything, mock.Anything, mock.Anything)

	clock.Advance(time.Minute)
	code := codeAt(t, enrollment.Secret, clock.Now())
	require.NoError(t, svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code))

	require.NotEmpty(t, persisted)
	assert.NotEqual(t, enrollment.Secret, persisted)
	plain, err := keys.cipher.Decrypt(persisted)
	require.NoError(t, err)
	assert.Equal(t, enrollment.Secret, plain)
}

func TestTOTP_BeginEnrollmentRejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	keys := testKeys(t)

	t.Run("caller mismatch", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		_, err := NewTOTPService(keys, store).BeginEnrollment(ctx, Identity{UserID: "u2"}, "u1")
		require.ErrorIs(t, err, ErrUnauthorized)
		store.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		t.Parallel()
		_, err := NewTOTPService(keys, &MockUserStore{}).BeginEnrollment(ctx, Identity{}, "")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("already enabled", func(t *testing.T) {
		t.Parallel()
		u, _ := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
		_, err := NewTOTPService(keys, store).BeginEnrollment(ctx, Identity{UserID: "u1"}, "u1")
		require.ErrorIs(t, err, ErrAlreadyEnabled)
	})

	t.Run("user missing", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(nil, ErrUserNotFound)
		_, err := NewTOTPService(keys, store).BeginEnrollment(ctx, Identity{UserID: "u1"}, "u1")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("no keys", func(t *testing.T) {
		t.Parallel()
		_, err := NewTOTPService(nil, &MockUserStore{}).BeginEnrollment(ctx, Identity{UserID: "u1"}, "u1")
		require.ErrorIs(t, err, ErrConfig)
	})
}

func TestTOTP_CompleteEnrollmentRejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	keys := testKeys(t)
	caller := Identity{UserID: "u1"}

	begin := func(t *testing.T, clock *testClock) (*TOTPService, *MockUserStore, *Enrollment) {
		t.Helper()
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil)
		svc := NewTOTPService(keys, store, WithClock(clock.Now))
		enrollment, err := svc.BeginEnrollment(ctx, caller, "u1")
		require.NoError(t, err)
		return svc, store, enrollment
	}

	t.Run("wrong code leaves the record untouched", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, store, enrollment := begin(t, clock)

		code := wrongCode(codeAt(t, enrollment.Secret, clock.Now()))
		err := svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code)
		require.ErrorIs(t, err, ErrInvalidCode)
		store.AssertNotCalled(t, "EnableTOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed code", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, _, enrollment := begin(t, clock)
		for _, code := range []string{"", "12345", "abcdef", "1234567"} {
			err := svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code)
			require.ErrorIs(t, err, ErrInvalidCode, "code %q", code)
		}
	})

	t.Run("staged slot empty", func(t *testing.T) {
		t.Parallel()
		svc := NewTOTPService(keys, &MockUserStore{})
		err := svc.CompleteEnrollment(ctx, caller, "u1", "", "123456")
		require.ErrorIs(t, err, ErrSetupExpired)
	})

	t.Run("staged slot expired", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, store, enrollment := begin(t, clock)

		clock.Advance(15 * time.Minute)
		code := codeAt(t, enrollment.Secret, clock.Now())
		err := svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code)
		require.ErrorIs(t, err, ErrSetupExpired)
		store.AssertNotCalled(t, "EnableTOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("staged slot tampered", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, _, enrollment := begin(t, clock)

		tampered := enrollment.Staged[:len(enrollment.Staged)-4] + "AAAA"
		err := svc.CompleteEnrollment(ctx, caller, "u1", tampered, codeAt(t, enrollment.Secret, clock.Now()))
		require.ErrorIs(t, err, ErrSetupExpired)
		require.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("staged slot of another user", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, _, enrollment := begin(t, clock)

		other := Identity{UserID: "u2"}
		err := svc.CompleteEnrollment(ctx, other, "u2", enrollment.Staged, codeAt(t, enrollment.Secret, clock.Now()))
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("caller mismatch", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, _, enrollment := begin(t, clock)
		err := svc.CompleteEnrollment(ctx, Identity{UserID: "u2"}, "u1", enrollment.Staged, "123456")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		svc, store, enrollment := begin(t, clock)
		store.On("EnableTOTP", mock.Anything, "u1", mock.Anything).Return(errors.New("db down"))

		err := svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, codeAt(t, enrollment.Secret, clock.Now()))
		require.ErrorIs(t, err, ErrUpdateFailed)
	})
}

func TestTOTP_StagedSecretSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	keys := testKeys(t)
	caller := Identity{UserID: "u1"}
	until := testNow.Add(15 * time.Minute)

	consumedOnce := func() *MockDenylist {
		deny := &MockDenylist{}
		deny.On("IsRevoked", mock.Anything, mock.Anything).Return(false, nil).Once()
		deny.On("Revoke", mock.Anything, mock.Anything, until).Return(nil).Once()
		deny.On("IsRevoked", mock.Anything, mock.Anything).Return(true, nil)
		return deny
	}

	t.Run("retry after a wrong code", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil)
		deny := consumedOnce()
		svc := NewTOTPService(keys, store, WithClock(clock.Now), WithDenylist(deny))

		enrollment, err := svc.BeginEnrollment(ctx, caller, "u1")
		require.NoError(t, err)
		code := codeAt(t, enrollment.Secret, clock.Now())

		err = svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, wrongCode(code))
		require.ErrorIs(t, err, ErrInvalidCode)

		err = svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code)
		require.ErrorIs(t, err, ErrSetupExpired, "a failed attempt restarts from enrollment")
		store.AssertNotCalled(t, "EnableTOTP", mock.Anything, mock.Anything, mock.Anything)
		deny.AssertExpectations(t)
	})

	t.Run("second completion loses", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil)
		store.On("EnableTOTP", mock.Anything, "u1", mock.Anything).Return(nil).Once()
		deny := consumedOnce()
		svc := NewTOTPService(keys, store, WithClock(clock.Now), WithDenylist(deny))

		enrollment, err := svc.BeginEnrollment(ctx, caller, "u1")
		require.NoError(t, err)
		code := codeAt(t, enrollment.Secret, clock.Now())

		require.NoError(t, svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code))
		err = svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, code)
		require.ErrorIs(t, err, ErrSetupExpired)
		store.AssertNumberOfCalls(t, "EnableTOTP", 1)
	})

	t.Run("factor enabled since staging", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		enabled, _ := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil).Once()
		store.On("GetUserByID", mock.Anything, "u1").Return(enabled, nil)
		svc := NewTOTPService(keys, store, WithClock(clock.Now))

		enrollment, err := svc.BeginEnrollment(ctx, caller, "u1")
		require.NoError(t, err)

		err = svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, codeAt(t, enrollment.Secret, clock.Now()))
		require.ErrorIs(t, err, ErrAlreadyEnabled)
		store.AssertNotCalled(t, "EnableTOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("denylist unavailable", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil)
		deny := &MockDenylist{}
		deny.On("IsRevoked", mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		svc := NewTOTPService(keys, store, WithClock(clock.Now), WithDenylist(deny))

		enrollment, err := svc.BeginEnrollment(ctx, caller, "u1")
		require.NoError(t, err)

		err = svc.CompleteEnrollment(ctx, caller, "u1", enrollment.Staged, codeAt(t, enrollment.Secret, clock.Now()))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrSetupExpired))
		store.AssertNotCalled(t, "EnableTOTP", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTOTP_Disable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	keys := testKeys(t)
	caller := Identity{UserID: "u1"}

	t.Run("password only", func(t *testing.T) {
		t.Parallel()
		u, _ := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
		store.On("DisableTOTP", mock.Anything, "u1").Return(nil).Once()

		require.NoError(t, NewTOTPService(keys, store).Disable(ctx, caller, "u1", "correct horse", ""))
		store.AssertExpectations(t)
	})

	t.Run("password and code", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		u, secret := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
		store.On("DisableTOTP", mock.Anything, "u1").Return(nil).Once()

		svc := NewTOTPService(keys, store, WithClock(clock.Now), WithRequireTOTPCode(true))
		require.NoError(t, svc.Disable(ctx, caller, "u1", "correct horse", codeAt(t, secret, clock.Now())))
	})

	t.Run("code required", func(t *testing.T) {
		t.Parallel()
		u, _ := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)

		err := NewTOTPService(keys, store, WithRequireTOTPCode(true)).Disable(ctx, caller, "u1", "correct horse", "")
		require.ErrorIs(t, err, ErrCodeRequired)
		store.AssertNotCalled(t, "DisableTOTP", mock.Anything, mock.Anything)
	})

	t.Run("wrong code", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		u, secret := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)

		svc := NewTOTPService(keys, store, WithClock(clock.Now))
		err := svc.Disable(ctx, caller, "u1", "correct horse", wrongCode(codeAt(t, secret, clock.Now())))
		require.ErrorIs(t, err, ErrInvalidCode)
		store.AssertNotCalled(t, "DisableTOTP", mock.Anything, mock.Anything)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		u, _ := enrolledUser(t, keys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)

		err := NewTOTPService(keys, store).Disable(ctx, caller, "u1", "battery staple", "")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("not enabled", func(t *testing.T) {
		t.Parallel()
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(testUser(t), nil)

		err := NewTOTPService(keys, store).Disable(ctx, caller, "u1", "correct horse", "")
		require.ErrorIs(t, err, ErrNotEnabled)
	})

	t.Run("secret sealed with another key", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		otherKeys, err := NewKeys(Config{SigningSecret: "other", EncryptionKey: "other-key"}, nil)
		require.NoError(t, err)
		u, secret := enrolledUser(t, otherKeys)
		store := &MockUserStore{}
		store.On("GetUserByID", mock.Anything, "u1").Return(u, nil)

		err = NewTOTPService(keys, store, WithClock(clock.Now)).
			Disable(ctx, caller, "u1", "correct horse", codeAt(t, secret, clock.Now()))
		require.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("caller mismatch", func(t *testing.T) {
		t.Parallel()
		err := NewTOTPService(keys, &MockUserStore{}).Disable(ctx, Identity{UserID: "u2"}, "u1", "correct horse", "")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestTOTP_ValidationWindow(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	u, secret := enrolledUser(t, keys)
	clock := newTestClock()
	svc := NewTOTPService(keys, &MockUserStore{}, WithClock(clock.Now))

	tests := map[string]struct {
		offset time.Duration
		valid  bool
	}{
		"current step":  {0, true},
		"previous step": {-30 * time.Second, true},
		"next step":     {30 * time.Second, true},
		"two steps ago": {-60 * time.Second, false},
		"two ahead":     {60 * time.Second, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := svc.verifyPersisted(u, codeAt(t, secret, testNow.Add(tt.offset)))
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidCode)
		})
	}
}
