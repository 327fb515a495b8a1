package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/clientip"
	"github.com/dmitrymomot/projectauth/pkg/i18n"
	"github.com/dmitrymomot/projectauth/pkg/jwt"
	"github.com/dmitrymomot/projectauth/pkg/ratelimiter"
)

// Routes returns the account router. Mount it at the application root or
// under a prefix:
//
//	r.Mount("/api", h.Routes())
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(i18n.Middleware(h.translator, nil))

	throttled := h.throttle()

	r.Route("/session", func(r chi.Router) {
		r.With(throttled("login")).Post("/login", h.login)
		r.With(throttled("challenge")).Post("/challenge", h.completeChallenge)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.With(h.authenticate()).Get("/", h.current)
	})

	r.Get("/verify", h.confirmVerification)
	r.With(throttled("verify")).Post("/verify", h.requestVerification)

	r.Route("/mfa", func(r chi.Router) {
		r.Use(h.authenticate())
		r.Get("/totp/setup", h.beginTOTP)
		r.With(throttled("totp")).Post("/totp/setup", h.completeTOTP)
		r.With(throttled("totp")).Post("/totp/disable", h.disableTOTP)
		r.Post("/email", h.enableEmailFactor)
		r.With(throttled("email_factor")).Delete("/email", h.disableEmailFactor)
	})

	return r
}

// authenticate verifies the session credential and stores the identity in
// the request context.
func (h *Handler) authenticate() func(http.Handler) http.Handler {
	return jwt.Middleware[auth.Identity](
		func(ctx context.Context, token string) (auth.Identity, error) {
			id, err := h.svc.Tokens.VerifyToken(ctx, token)
			if err != nil {
				return auth.Identity{}, err
			}
			return *id, nil
		},
		jwt.WithExtractor(h.svc.Transport.GetToken),
		jwt.WithErrorHandler(h.failAuth),
	)
}

// caller returns the identity stored by authenticate.
func caller(r *http.Request) auth.Identity {
	id, _ := jwt.GetClaims[auth.Identity](r.Context())
	return id
}

// throttle returns a per-route limiter middleware factory. Without a
// limiter the middleware is a no-op.
func (h *Handler) throttle() func(route string) func(http.Handler) http.Handler {
	return func(route string) func(http.Handler) http.Handler {
		if h.limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimiter.Middleware(h.limiter,
			ratelimiter.Prefixed(route+":", clientip.FromRequest),
			ratelimiter.WithErrorResponder(func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result, err error) {
				if err != nil {
					h.fail(w, r, err)
					return
				}
				h.fail(w, r, ErrRateLimited)
			}),
		)
	}
}
