package account

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/i18n"
	"github.com/dmitrymomot/projectauth/pkg/logger"
	"github.com/dmitrymomot/projectauth/pkg/ratelimiter"
	"github.com/dmitrymomot/projectauth/pkg/session"
)

// Services are the collaborators behind the routes. All are required.
type Services struct {
	Tokens       *auth.TokenService
	Verification *auth.EmailVerificationService
	TOTP         *auth.TOTPService
	EmailFactor  *auth.EmailFactorService
	Login        *auth.LoginService

	Transport session.Transport
	Staged    *session.StagedSecret
}

func (s Services) validate() error {
	var missing []string
	if s.Tokens == nil {
		missing = append(missing, "tokens")
	}
	if s.Verification == nil {
		missing = append(missing, "verification")
	}
	if s.TOTP == nil {
		missing = append(missing, "totp")
	}
	if s.EmailFactor == nil {
		missing = append(missing, "email factor")
	}
	if s.Login == nil {
		missing = append(missing, "login")
	}
	if s.Transport == nil {
		missing = append(missing, "transport")
	}
	if s.Staged == nil {
		missing = append(missing, "staged secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingService, strings.Join(missing, ", "))
	}
	return nil
}

// Handler serves the account routes.
type Handler struct {
	svc        Services
	translator *i18n.Translator
	limiter    ratelimiter.RateLimiter
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithTranslator replaces the embedded message catalog.
func WithTranslator(t *i18n.Translator) Option {
	return func(h *Handler) {
		if t != nil {
			h.translator = t
		}
	}
}

// WithAttemptLimiter throttles the routes that check a password, a code or
// send mail, keyed by client address.
func WithAttemptLimiter(l ratelimiter.RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock sets the clock used for cookie lifetimes.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New validates svc and returns a Handler.
func New(svc Services, opts ...Option) (*Handler, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	h := &Handler{svc: svc, log: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.translator == nil {
		t, err := Catalog(i18n.WithLogger(h.log))
		if err != nil {
			return nil, errors.Join(ErrMissingService, err)
		}
		h.translator = t
	}
	return h, nil
}
