package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/jwt"
	"github.com/dmitrymomot/projectauth/pkg/session"
)

var (
	// ErrMissingService is returned by New when a required service is nil.
	ErrMissingService = errors.New("account: missing service")
	// ErrInvalidRequest marks a body that could not be decoded.
	ErrInvalidRequest = errors.New("account: invalid request body")
	// ErrRateLimited marks a throttled attempt.
	ErrRateLimited = errors.New("account: too many attempts")
	// ErrUnauthenticated marks a request without a session credential.
	ErrUnauthenticated = errors.New("account: not signed in")
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is matched top to bottom with errors.Is. Joined errors carry
// several taxonomy values, so the more specific ones come first.
var errorTable = []errorMapping{
	{auth.ErrConfig, http.StatusInternalServerError, "CONFIG_ERROR"},
	{auth.ErrAuthenticationExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{session.ErrSessionNotFound, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{jwt.ErrMissingToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{auth.ErrInvalidPassword, http.StatusUnauthorized, "INVALID_PASSWORD"},
	{auth.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{auth.ErrSetupExpired, http.StatusBadRequest, "SETUP_EXPIRED"},
	{auth.ErrTokenExpired, http.StatusBadRequest, "TOKEN_EXPIRED"},
	{auth.ErrTokenInvalid, http.StatusBadRequest, "INVALID_TOKEN"},
	{auth.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
	{auth.ErrInvalidCode, http.StatusBadRequest, "INVALID_CODE"},
	{auth.ErrCodeRequired, http.StatusBadRequest, "CODE_REQUIRED"},
	{auth.ErrNotEnabled, http.StatusBadRequest, "NOT_ENABLED"},
	{auth.ErrAlreadyEnabled, http.StatusConflict, "ALREADY_ENABLED"},
	{auth.ErrDecryption, http.StatusInternalServerError, "DECRYPTION_ERROR"},
	{auth.ErrUpdateFailed, http.StatusInternalServerError, "UPDATE_FAILED"},
	{auth.ErrMailFailed, http.StatusInternalServerError, "MAIL_FAILED"},
}

// classify returns the status and code for err.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// classifyAuth is classify for credential checks: client errors become 401
// so the caller re-authenticates instead of retrying.
func classifyAuth(err error) (int, string) {
	status, code := classify(err)
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		status = http.StatusUnauthorized
	}
	return status, code
}

func messageKey(code string) string {
	return "errors." + strings.ToLower(code)
}
