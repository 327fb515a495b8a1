package session

import (
	"errors"
	"net/http"
	"time"
)

// CompositeTransport reads from the first transport that has a token and
// writes through all of them.
type CompositeTransport struct {
	transports []Transport
}

// NewCompositeTransport combines transports in priority order.
func NewCompositeTransport(transports ...Transport) *CompositeTransport {
	return &CompositeTransport{transports: transports}
}

// GetToken returns the token from the first transport that carries one.
func (t *CompositeTransport) GetToken(r *http.Request) (string, error) {
	for _, transport := range t.transports {
		token, err := transport.GetToken(r)
		if err == nil && token != "" {
			return token, nil
		}
	}
	return "", ErrSessionNotFound
}

// SetToken sends the token through every transport.
func (t *CompositeTransport) SetToken(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) error {
	var errs []error
	for _, transport := range t.transports {
		errs = append(errs, transport.SetToken(w, r, token, ttl))
	}
	return errors.Join(errs...)
}

// ClearToken clears the token from every transport.
func (t *CompositeTransport) ClearToken(w http.ResponseWriter, r *http.Request) error {
	var errs []error
	for _, transport := range t.transports {
		errs = append(errs, transport.ClearToken(w, r))
	}
	return errors.Join(errs...)
}
