package auth

import "time"

// User is the subset of the user record this package reads and mutates.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string

	EmailVerified            bool
	VerificationToken        *string
	VerificationTokenExpires *time.Time

	TOTP           TOTPFactor
	EmailTwoFactor bool

	UpdatedAt time.Time
}

// SecondFactorEnabled reports whether login needs a step-up.
func (u *User) SecondFactorEnabled() bool {
	return u.TOTP.Enabled() || u.EmailTwoFactor
}

// TOTPState enumerates the TOTP factor states.
type TOTPState uint8

const (
	TOTPUnset TOTPState = iota
	TOTPStaged
	TOTPPersisted
)

func (s TOTPState) String() string {
	switch s {
	case TOTPStaged:
		return "staged"
	case TOTPPersisted:
		return "persisted"
	default:
		return "unset"
	}
}

// TOTPFactor is the TOTP secret in one of its three states. The zero value
// is Unset. The ciphertext is always the encrypted base32 secret.
type TOTPFactor struct {
	state      TOTPState
	ciphertext string
	expiresAt  time.Time
}

// UnsetTOTP returns a factor with no secret.
func UnsetTOTP() TOTPFactor { return TOTPFactor{} }

// StagedTOTP returns an unconfirmed factor that is usable until expiresAt.
func StagedTOTP(ciphertext string, expiresAt time.Time) TOTPFactor {
	return TOTPFactor{state: TOTPStaged, ciphertext: ciphertext, expiresAt: expiresAt}
}

// PersistedTOTP returns a confirmed factor. An empty ciphertext yields Unset.
func PersistedTOTP(ciphertext string) TOTPFactor {
	if ciphertext == "" {
		return TOTPFactor{}
	}
	return TOTPFactor{state: TOTPPersisted, ciphertext: ciphertext}
}

// TOTPFromColumns maps the mfa_secret and is_mfa_enabled columns to a factor.
// A row with only one of the two set is treated as Unset.
func TOTPFromColumns(secret *string, enabled bool) TOTPFactor {
	if !enabled || secret == nil {
		return TOTPFactor{}
	}
	return PersistedTOTP(*secret)
}

// Columns maps the factor to the mfa_secret and is_mfa_enabled columns.
// Staged factors are never stored and map to (nil, false).
func (f TOTPFactor) Columns() (*string, bool) {
	if f.state != TOTPPersisted {
		return nil, false
	}
	secret := f.ciphertext
	return &secret, true
}

func (f TOTPFactor) State() TOTPState { return f.state }

// Enabled reports whether the factor is persisted.
func (f TOTPFactor) Enabled() bool { return f.state == TOTPPersisted }

// Ciphertext returns the encrypted secret; empty when Unset.
func (f TOTPFactor) Ciphertext() string { return f.ciphertext }

// ExpiresAt is only meaningful for staged factors.
func (f TOTPFactor) ExpiresAt() time.Time { return f.expiresAt }

// Promote turns a staged factor into a persisted one.
func (f TOTPFactor) Promote() (TOTPFactor, bool) {
	if f.state != TOTPStaged {
		return f, false
	}
	return PersistedTOTP(f.ciphertext), true
}

// Identity is the verified caller, as carried by a session token.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}

// TTL returns the remaining lifetime relative to now.
func (t *IssuedToken) TTL(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}
