package auth

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/logger"
)

type options struct {
	now             func() time.Time
	logger          *slog.Logger
	denylist        Denylist
	requireTOTPCode bool
}

// Option configures any of the services in this package.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDenylist enables server-side revocation of session tokens.
func WithDenylist(d Denylist) Option {
	return func(o *options) {
		o.denylist = d
	}
}

// WithRequireTOTPCode makes the authenticator code mandatory when disabling TOTP.
func WithRequireTOTPCode(required bool) Option {
	return func(o *options) {
		o.requireTOTPCode = required
	}
}

func applyOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
