package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/cookie"
)

// indicatorValue is the value of the login indicator cookie.
const indicatorValue = "true"

// CookieTransport implements Transport with the auth_token and
// user_logged_in cookies.
type CookieTransport struct {
	cookies *cookie.Manager
	cfg     Config
}

// NewCookieTransport creates a cookie transport. Zero config fields take defaults.
func NewCookieTransport(cookies *cookie.Manager, cfg Config) *CookieTransport {
	return &CookieTransport{cookies: cookies, cfg: cfg.withDefaults()}
}

// GetToken returns the auth_token cookie value.
func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.cookies.Get(r, t.cfg.TokenCookie)
	if err != nil || token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// SetToken writes both session cookies. A non-positive ttl uses the configured TokenTTL.
func (t *CookieTransport) SetToken(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.cfg.TokenTTL
	}
	opts := t.options(cookie.WithTTL(ttl))

	return errors.Join(
		t.cookies.Set(w, r, t.cfg.TokenCookie, token, opts...),
		t.cookies.Set(w, r, t.cfg.IndicatorCookie, indicatorValue, opts...),
	)
}

// ClearToken expires both session cookies.
func (t *CookieTransport) ClearToken(w http.ResponseWriter, r *http.Request) error {
	opts := t.options()
	t.cookies.Delete(w, r, t.cfg.TokenCookie, opts...)
	t.cookies.Delete(w, r, t.cfg.IndicatorCookie, opts...)
	return nil
}

// options returns the session cookie attributes. The token is readable by script.
func (t *CookieTransport) options(extra ...cookie.Option) []cookie.Option {
	return append([]cookie.Option{
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(false),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}, extra...)
}
