package session

import (
	"net/http"
	"strings"
	"time"
)

// HeaderTransport implements Transport with request and response headers.
// It reads "Authorization: Bearer <token>" and answers with the token in
// the configured response header.
type HeaderTransport struct {
	responseHeader string
	now            func() time.Time
}

// HeaderOption is a functional option for HeaderTransport.
type HeaderOption func(*HeaderTransport)

// WithHeaderClock overrides the clock used for the expiry header.
func WithHeaderClock(now func() time.Time) HeaderOption {
	return func(t *HeaderTransport) {
		if now != nil {
			t.now = now
		}
	}
}

// NewHeaderTransport creates a header transport. An empty name uses X-Auth-Token.
func NewHeaderTransport(responseHeader string, opts ...HeaderOption) *HeaderTransport {
	if responseHeader == "" {
		responseHeader = "X-Auth-Token"
	}
	t := &HeaderTransport{responseHeader: responseHeader, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetToken extracts the bearer token.
func (t *HeaderTransport) GetToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// SetToken writes the token and its expiry to the response headers.
func (t *HeaderTransport) SetToken(w http.ResponseWriter, _ *http.Request, token string, ttl time.Duration) error {
	w.Header().Set(t.responseHeader, token)
	if ttl > 0 {
		w.Header().Set(t.responseHeader+"-Expires", t.now().Add(ttl).UTC().Format(time.RFC3339))
	}
	return nil
}

// ClearToken removes the token headers from the response.
func (t *HeaderTransport) ClearToken(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Del(t.responseHeader)
	w.Header().Del(t.responseHeader + "-Expires")
	return nil
}
