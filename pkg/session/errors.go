package session

import "errors"

var (
	// ErrSessionNotFound indicates the request carries no session credential.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrStagedSecretNotFound indicates the request carries no staged TOTP secret.
	ErrStagedSecretNotFound = errors.New("session.staged_secret_not_found")
)
