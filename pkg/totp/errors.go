package totp

import "errors"

var (
	ErrMissingIssuer             = errors.New("totp: missing issuer")
	ErrMissingAccountName        = errors.New("totp: missing account name")
	ErrFailedToGenerateSecret    = errors.New("totp: failed to generate secret")
	ErrInvalidSecret             = errors.New("totp: invalid secret")
	ErrInvalidCode               = errors.New("totp: invalid code format")
	ErrFailedToGenerateCode      = errors.New("totp: failed to generate code")
	ErrFailedToGenerateEmailCode = errors.New("totp: failed to generate email code")
)
