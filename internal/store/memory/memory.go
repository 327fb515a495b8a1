// Package memory is an in-process auth.UserStore for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/projectauth/pkg/auth"
)

// ErrEmailTaken is returned by CreateUser for a duplicate address.
var ErrEmailTaken = errors.New("memory: email already registered")

// Store keeps users in maps guarded by a single lock.
type Store struct {
	mu      sync.RWMutex
	users   map[string]auth.User
	byEmail map[string]string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		users:   make(map[string]auth.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser inserts u. An empty ID gets a random UUID.
func (s *Store) CreateUser(_ context.Context, u auth.User) (*auth.User, error) {
	u.Email = auth.NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return nil, ErrEmailTaken
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return clone(u), nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) SetVerificationToken(_ context.Context, id, token string, expiresAt time.Time) error {
	return s.update(id, func(u *auth.User) {
		u.VerificationToken = &token
		u.VerificationTokenExpires = &expiresAt
	})
}

func (s *Store) MarkEmailVerified(_ context.Context, id string) error {
	return s.update(id, func(u *auth.User) {
		u.EmailVerified = true
		u.VerificationToken = nil
		u.VerificationTokenExpires = nil
	})
}

func (s *Store) EnableTOTP(_ context.Context, id, encryptedSecret string) error {
	return s.update(id, func(u *auth.User) {
		u.TOTP = auth.PersistedTOTP(encryptedSecret)
	})
}

func (s *Store) DisableTOTP(_ context.Context, id string) error {
	return s.update(id, func(u *auth.User) {
		u.TOTP = auth.UnsetTOTP()
	})
}

func (s *Store) SetEmailTwoFactor(_ context.Context, id string, enabled bool) error {
	return s.update(id, func(u *auth.User) {
		u.EmailTwoFactor = enabled
	})
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) update(id string, fn func(u *auth.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// clone detaches the nullable fields from the stored copy.
func clone(u auth.User) *auth.User {
	if u.VerificationToken != nil {
		v := *u.VerificationToken
		u.VerificationToken = &v
	}
	if u.VerificationTokenExpires != nil {
		v := *u.VerificationTokenExpires
		u.VerificationTokenExpires = &v
	}
	return &u
}
