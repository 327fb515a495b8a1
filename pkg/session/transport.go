package session

import (
	"net/http"
	"time"
)

// Transport moves the session credential in and out of HTTP messages.
type Transport interface {
	// GetToken extracts the session token from the request.
	GetToken(r *http.Request) (string, error)

	// SetToken sends the session token in the response.
	SetToken(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) error

	// ClearToken instructs the client to drop the session token.
	ClearToken(w http.ResponseWriter, r *http.Request) error
}
