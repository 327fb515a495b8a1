package session

import (
	"net/http"

	"github.com/dmitrymomot/projectauth/pkg/cookie"
)

// StagedSecret is the cookie slot for a TOTP secret awaiting confirmation.
type StagedSecret struct {
	cookies *cookie.Manager
	cfg     Config
}

// NewStagedSecret creates the staged-secret slot. Zero config fields take defaults.
func NewStagedSecret(cookies *cookie.Manager, cfg Config) *StagedSecret {
	return &StagedSecret{cookies: cookies, cfg: cfg.withDefaults()}
}

// Set stores an already encrypted value for StagedTTL.
func (s *StagedSecret) Set(w http.ResponseWriter, r *http.Request, value string) error {
	return s.cookies.Set(w, r, s.cfg.StagedCookie, value, s.options(cookie.WithTTL(s.cfg.StagedTTL))...)
}

// Get returns the staged value or ErrStagedSecretNotFound.
func (s *StagedSecret) Get(r *http.Request) (string, error) {
	value, err := s.cookies.Get(r, s.cfg.StagedCookie)
	if err != nil || value == "" {
		return "", ErrStagedSecretNotFound
	}
	return value, nil
}

// Clear expires the slot with an empty value and Max-Age=0.
func (s *StagedSecret) Clear(w http.ResponseWriter, r *http.Request) {
	s.cookies.Delete(w, r, s.cfg.StagedCookie, s.options()...)
}

func (s *StagedSecret) options(extra ...cookie.Option) []cookie.Option {
	return append([]cookie.Option{
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}, extra...)
}
