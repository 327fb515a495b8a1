package cookie

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Manager applies one cookie policy to every cookie it writes.
type Manager struct {
	defaults Options
}

// New creates a manager. Defaults are path "/", HttpOnly and SameSite=Lax.
func New(opts ...Option) *Manager {
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{defaults: applyOptions(defaults, opts)}
}

// Set writes a cookie. r is used to decide the Secure flag and may be nil.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, name, value string, opts ...Option) error {
	if name == "" {
		return ErrInvalidName
	}
	options := applyOptions(m.defaults, opts)

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure || IsSecureRequest(r),
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	})
	return nil
}

// Get returns the value of the named cookie.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Delete expires the named cookie with an empty value and Max-Age=0.
// opts must match the attributes the cookie was set with.
func (m *Manager) Delete(w http.ResponseWriter, r *http.Request, name string, opts ...Option) {
	options := applyOptions(m.defaults, opts)

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   -1, // net/http renders negative values as Max-Age=0
		Expires:  time.Unix(0, 0),
		Secure:   options.Secure || IsSecureRequest(r),
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	})
}

// IsSecureRequest reports whether r arrived over an encrypted transport.
func IsSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
