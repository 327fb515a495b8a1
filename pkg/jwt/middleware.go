package jwt

import (
	"context"
	"net/http"
	"strings"
)

// TokenExtractorFunc pulls a raw token out of a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// Authenticator resolves a raw token into caller claims.
type Authenticator[C any] func(ctx context.Context, token string) (C, error)

// ErrorHandlerFunc writes the response for a rejected request.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

type middlewareOptions struct {
	extractor    TokenExtractorFunc
	skip         func(r *http.Request) bool
	errorHandler ErrorHandlerFunc
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareOptions)

// WithExtractor replaces the default bearer extractor.
func WithExtractor(extractor TokenExtractorFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		if extractor != nil {
			o.extractor = extractor
		}
	}
}

// WithSkip lets matching requests through without authentication.
func WithSkip(skip func(r *http.Request) bool) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.skip = skip
	}
}

// WithErrorHandler replaces the plain-text 401 response.
func WithErrorHandler(h ErrorHandlerFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// Middleware authenticates every request and stores the token and claims in
// the request context.
func Middleware[C any](authenticate Authenticator[C], opts ...MiddlewareOption) func(next http.Handler) http.Handler {
	o := middlewareOptions{
		extractor: BearerTokenExtractor,
		errorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o.skip != nil && o.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := o.extractor(r)
			if err != nil {
				o.errorHandler(w, r, err)
				return
			}

			claims, err := authenticate(r.Context(), token)
			if err != nil {
				o.errorHandler(w, r, err)
				return
			}

			ctx := SetToken(r.Context(), token)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// CookieTokenExtractor reads the named cookie.
func CookieTokenExtractor(name string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", ErrMissingToken
		}
		return c.Value, nil
	}
}

// ChainExtractors returns the first token any extractor finds.
func ChainExtractors(extractors ...TokenExtractorFunc) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		for _, extract := range extractors {
			if token, err := extract(r); err == nil {
				return token, nil
			}
		}
		return "", ErrMissingToken
	}
}
