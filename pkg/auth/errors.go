package auth

import "errors"

// Configuration errors
var (
	ErrConfig = errors.New("auth: signing secret is not configured")
)

// Credential errors
var (
	ErrTokenExpired          = errors.New("auth: token expired")
	ErrTokenInvalid          = errors.New("auth: invalid token")
	ErrAuthenticationExpired = errors.New("auth: authentication expired")
	ErrUnauthorized          = errors.New("auth: caller is not the subject user")
	ErrInvalidCredentials    = errors.New("auth: invalid email or password")
	ErrInvalidPassword       = errors.New("auth: invalid password")
)

// User record errors
var (
	ErrUserNotFound = errors.New("auth: user not found")
	ErrInvalidEmail = errors.New("auth: invalid email address")
	ErrUpdateFailed = errors.New("auth: failed to update user")
)

// Second factor errors
var (
	ErrSetupExpired   = errors.New("auth: setup expired, start again")
	ErrInvalidCode    = errors.New("auth: invalid code")
	ErrCodeRequired   = errors.New("auth: authenticator code is required")
	ErrNotEnabled     = errors.New("auth: second factor is not enabled")
	ErrAlreadyEnabled = errors.New("auth: second factor is already enabled")
	ErrDecryption     = errors.New("auth: failed to decrypt secret")
)

// Collaborator errors
var (
	ErrMailFailed = errors.New("auth: failed to send email")
)
