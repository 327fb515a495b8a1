package auth

import (
	"context"
	"time"
)

// UserStore persists user records. Every mutation sets UpdatedAt.
// Lookups return ErrUserNotFound when no record matches.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	// GetUserByEmail matches the lower-cased address.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// SetVerificationToken replaces the stored verification token and expiry.
	SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// MarkEmailVerified clears both token fields and sets email_verified.
	MarkEmailVerified(ctx context.Context, id string) error

	// EnableTOTP stores the encrypted secret and sets is_mfa_enabled.
	EnableTOTP(ctx context.Context, id, encryptedSecret string) error
	// DisableTOTP clears the secret and the flag.
	DisableTOTP(ctx context.Context, id string) error

	SetEmailTwoFactor(ctx context.Context, id string, enabled bool) error
}

// VerificationMail is the content of a verification email.
type VerificationMail struct {
	To        string
	Name      string
	Locale    string
	Link      string
	ExpiresAt time.Time
}

// LoginCodeMail is the content of an email with a one-time login code.
type LoginCodeMail struct {
	To        string
	Name      string
	Code      string
	ExpiresAt time.Time
}

// Mailer delivers transactional email. Implementations apply their own timeout.
type Mailer interface {
	SendVerification(ctx context.Context, mail VerificationMail) error
	SendLoginCode(ctx context.Context, mail LoginCodeMail) error
}

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
