package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/projectauth/internal/store/memory"
	"github.com/dmitrymomot/projectauth/modules/account"
	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/cookie"
	"github.com/dmitrymomot/projectauth/pkg/ratelimiter"
	"github.com/dmitrymomot/projectauth/pkg/session"
	"github.com/dmitrymomot/projectauth/pkg/totp"
)

const password = "correct horse"

type outbox struct {
	mu    sync.Mutex
	links []string
	codes []string
}

func (o *outbox) SendVerification(_ context.Context, m auth.VerificationMail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links = append(o.links, m.Link)
	return nil
}

func (o *outbox) SendLoginCode(_ context.Context, m auth.LoginCodeMail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, m.Code)
	return nil
}

func (o *outbox) lastLink() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.links) == 0 {
		return ""
	}
	return o.links[len(o.links)-1]
}

func (o *outbox) lastCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.codes) == 0 {
		return ""
	}
	return o.codes[len(o.codes)-1]
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	router http.Handler
	store  *memory.Store
	mail   *outbox
	clock  *clock
}

func newFixture(t *testing.T, opts ...account.Option) *fixture {
	t.Helper()
	clk := &clock{t: time.Unix(1_700_000_000, 0).UTC()}
	keys, err := auth.NewKeys(auth.Config{SigningSecret: "account-test-secret"}, nil)
	require.NoError(t, err)

	store := memory.New(memory.WithClock(clk.Now))
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), auth.User{
		ID:           "u1",
		Email:        "a@x.com",
		Name:         "Alice",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	mail := &outbox{}
	authOpts := []auth.Option{auth.WithClock(clk.Now)}
	tokens := auth.NewTokenService(keys, store, authOpts...)
	cookies := cookie.New()
	cfg := session.DefaultConfig()

	h, err := account.New(account.Services{
		Tokens:       tokens,
		Verification: auth.NewEmailVerificationService(keys, store, mail, authOpts...),
		TOTP:         auth.NewTOTPService(keys, store, authOpts...),
		EmailFactor:  auth.NewEmailFactorService(store, authOpts...),
		Login:        auth.NewLoginService(keys, store, mail, tokens, authOpts...),
		Transport:    session.NewCookieTransport(cookies, cfg),
		Staged:       session.NewStagedSecret(cookies, cfg),
	}, append([]account.Option{account.WithClock(clk.Now)}, opts...)...)
	require.NoError(t, err)

	return &fixture{router: h.Routes(), store: store, mail: mail, clock: clk}
}

type result struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Error       string `json:"error"`
	Code        string `json:"code"`
	RedirectURL string `json:"redirectUrl"`
	QRCode      string `json:"qrCode"`
	Secret      string `json:"secret"`
	User        *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Challenge *struct {
		Token string `json:"token"`
		Kind  string `json:"kind"`
	} `json:"challenge"`
}

func (f *fixture) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, result) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var res result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec, res
}

func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec, res := f.do(t, http.MethodPost, "/session/login", `{"email":"a@x.com","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, res.Error)
	c := responseCookie(rec, "auth_token")
	require.NotNil(t, c)
	return c
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func assertCleared(t *testing.T, rec *httptest.ResponseRecorder, names ...string) {
	t.Helper()
	for _, name := range names {
		c := responseCookie(rec, name)
		if assert.NotNil(t, c, name) {
			assert.Empty(t, c.Value, name)
			assert.Less(t, c.MaxAge, 0, name)
		}
	}
}

func TestNew_MissingServices(t *testing.T) {
	t.Parallel()
	_, err := account.New(account.Services{})
	require.ErrorIs(t, err, account.ErrMissingService)
	assert.Contains(t, err.Error(), "tokens")
	assert.Contains(t, err.Error(), "staged secret")
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("sets session cookies", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec, res := f.do(t, http.MethodPost, "/session/login", `{"email":"A@x.com ","password":"`+password+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, res.Success)
		assert.Equal(t, "Signed in.", res.Message)
		require.NotNil(t, res.User)
		assert.Equal(t, "u1", res.User.ID)

		token := responseCookie(rec, "auth_token")
		require.NotNil(t, token)
		assert.NotEmpty(t, token.Value)
		assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), token.MaxAge)
		assert.False(t, token.HttpOnly)

		indicator := responseCookie(rec, "user_logged_in")
		require.NotNil(t, indicator)
		assert.Equal(t, "true", indicator.Value)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec, res := f.do(t, http.MethodPost, "/session/login", `{"email":"a@x.com","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, res.Success)
		assert.Equal(t, "INVALID_CREDENTIALS", res.Code)
		assert.Equal(t, "Invalid email or password.", res.Error)
		assert.Nil(t, responseCookie(rec, "auth_token"))
	})

	t.Run("malformed bodies", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		for _, body := range []string{`{`, `{"email":"a@x.com","extra":1}`, `{"email":"a@x.com"} {}`} {
			rec, res := f.do(t, http.MethodPost, "/session/login", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, "INVALID_REQUEST", res.Code, body)
		}

		req := httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("localized error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(`{"email":"a@x.com","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		var res result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "E-Mail oder Passwort ist falsch.", res.Error)
		assert.Equal(t, "INVALID_CREDENTIALS", res.Code)
	})
}

func TestCurrentSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec, res := f.do(t, http.MethodGet, "/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", res.Code)

	rec, res = f.do(t, http.MethodGet, "/session", "", &http.Cookie{Name: "auth_token", Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", res.Code)

	token := f.login(t)
	rec, res = f.do(t, http.MethodGet, "/session", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, res.User)
	assert.Equal(t, "a@x.com", res.User.Email)

	f.clock.Advance(7*24*time.Hour + time.Second)
	rec, res = f.do(t, http.MethodGet, "/session", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", res.Code)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("renews a valid token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		f.clock.Advance(time.Hour)

		rec, res := f.do(t, http.MethodPost, "/session/refresh", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Session refreshed.", res.Message)
		renewed := responseCookie(rec, "auth_token")
		require.NotNil(t, renewed)
		assert.NotEqual(t, token.Value, renewed.Value)
	})

	t.Run("renews an expired token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		f.clock.Advance(30 * 24 * time.Hour)

		rec, _ := f.do(t, http.MethodPost, "/session/refresh", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, responseCookie(rec, "auth_token"))
	})

	t.Run("unparsable token clears cookies", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec, res := f.do(t, http.MethodPost, "/session/refresh", "", &http.Cookie{Name: "auth_token", Value: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_EXPIRED", res.Code)
		assertCleared(t, rec, "auth_token", "user_logged_in")
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec, res := f.do(t, http.MethodPost, "/session/refresh", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_EXPIRED", res.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.login(t)

	rec, res := f.do(t, http.MethodPost, "/session/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Signed out.", res.Message)
	assertCleared(t, rec, "auth_token", "user_logged_in")

	rec, _ = f.do(t, http.MethodPost, "/session/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code, "logout without a session still succeeds")
}

func TestVerification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec, res := f.do(t, http.MethodPost, "/verify", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, res.Error)
	assert.Equal(t, "Verification email sent.", res.Message)

	link, err := url.Parse(f.mail.lastLink())
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	rec, res = f.do(t, http.MethodGet, "/verify?token="+url.QueryEscape(token), "")
	require.Equal(t, http.StatusOK, rec.Code, res.Error)
	assert.Equal(t, "Email address verified.", res.Message)
	assert.Equal(t, "http://localhost:8080/dashboard", res.RedirectURL)

	rec, res = f.do(t, http.MethodPost, "/verify", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your email address is already verified.", res.Message)

	rec, res = f.do(t, http.MethodGet, "/verify?token=garbage", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", res.Code)

	rec, res = f.do(t, http.MethodPost, "/verify", `{"email":"nobody@x.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", res.Code)

	rec, res = f.do(t, http.MethodPost, "/verify", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_EMAIL", res.Code)
}

func TestTOTPEnrollment(t *testing.T) {
	t.Parallel()

	begin := func(t *testing.T, f *fixture, token *http.Cookie) (*http.Cookie, string) {
		t.Helper()
		rec, res := f.do(t, http.MethodGet, "/mfa/totp/setup", "", token)
		require.Equal(t, http.StatusOK, rec.Code, res.Error)
		assert.True(t, strings.HasPrefix(res.QRCode, "data:image/png;base64,"))
		require.NotEmpty(t, res.Secret)
		staged := responseCookie(rec, "temp_totp_secret")
		require.NotNil(t, staged)
		assert.True(t, staged.HttpOnly)
		assert.Equal(t, 15*60, staged.MaxAge)
		return staged, res.Secret
	}

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec, res := f.do(t, http.MethodGet, "/mfa/totp/setup", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHENTICATED", res.Code)
	})

	t.Run("enable then step up at login", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		staged, secret := begin(t, f, token)

		code, err := totp.GenerateCodeAt(secret, f.clock.Now())
		require.NoError(t, err)
		rec, res := f.do(t, http.MethodPost, "/mfa/totp/setup", `{"token":"`+code+`"}`, token, staged)
		require.Equal(t, http.StatusOK, rec.Code, res.Error)
		assert.Equal(t, "Two-factor authentication enabled.", res.Message)
		assertCleared(t, rec, "temp_totp_secret")

		rec, res = f.do(t, http.MethodGet, "/mfa/totp/setup", "", token)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_ENABLED", res.Code)

		rec, res = f.do(t, http.MethodPost, "/session/login", `{"email":"a@x.com","password":"`+password+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, responseCookie(rec, "auth_token"))
		require.NotNil(t, res.Challenge)
		assert.Equal(t, auth.ChallengeTOTP, res.Challenge.Kind)
		assert.Equal(t, "Enter the code from your authenticator app.", res.Message)

		rec, res = f.do(t, http.MethodPost, "/session/challenge", `{"challenge":"`+res.Challenge.Token+`","code":"000000x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CODE", res.Code)
	})

	t.Run("wrong code clears staged secret", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		staged, _ := begin(t, f, token)

		rec, res := f.do(t, http.MethodPost, "/mfa/totp/setup", `{"token":"12345"}`, token, staged)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_CODE", res.Code)
		assertCleared(t, rec, "temp_totp_secret")

		user, err := f.store.GetUserByID(context.Background(), "u1")
		require.NoError(t, err)
		assert.False(t, user.TOTP.Enabled())
	})

	t.Run("missing staged secret", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		rec, res := f.do(t, http.MethodPost, "/mfa/totp/setup", `{"token":"123456"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "SETUP_EXPIRED", res.Code)
	})

	t.Run("expired staged secret", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		staged, secret := begin(t, f, token)
		f.clock.Advance(16 * time.Minute)

		code, err := totp.GenerateCodeAt(secret, f.clock.Now())
		require.NoError(t, err)
		rec, res := f.do(t, http.MethodPost, "/mfa/totp/setup", `{"token":"`+code+`"}`, token, staged)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "SETUP_EXPIRED", res.Code)
	})

	t.Run("disable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		token := f.login(t)
		staged, secret := begin(t, f, token)
		code, err := totp.GenerateCodeAt(secret, f.clock.Now())
		require.NoError(t, err)
		rec, _ := f.do(t, http.MethodPost, "/mfa/totp/setup", `{"token":"`+code+`"}`, token, staged)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, res := f.do(t, http.MethodPost, "/mfa/totp/disable", `{"password":"wrong"}`, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_PASSWORD", res.Code)

		rec, res = f.do(t, http.MethodPost, "/mfa/totp/disable", `{"password":"`+password+`"}`, token)
		require.Equal(t, http.StatusOK, rec.Code, res.Error)
		assert.Equal(t, "Two-factor authentication disabled.", res.Message)

		rec, res = f.do(t, http.MethodPost, "/mfa/totp/disable", `{"password":"`+password+`"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NOT_ENABLED", res.Code)
	})
}

func TestEmailFactor(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.login(t)

	rec, res := f.do(t, http.MethodPost, "/mfa/email", "", token)
	require.Equal(t, http.StatusOK, rec.Code, res.Error)
	assert.Equal(t, "Email codes enabled for sign-in.", res.Message)

	rec, res = f.do(t, http.MethodPost, "/session/login", `{"email":"a@x.com","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, res.Challenge)
	assert.Equal(t, auth.ChallengeEmail, res.Challenge.Kind)
	assert.Equal(t, "We sent a sign-in code to your email.", res.Message)
	code := f.mail.lastCode()
	require.NotEmpty(t, code)

	rec, res = f.do(t, http.MethodPost, "/session/challenge", `{"challenge":"`+res.Challenge.Token+`","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, res.Error)
	assert.Equal(t, "Signed in.", res.Message)
	assert.NotNil(t, responseCookie(rec, "auth_token"))

	rec, res = f.do(t, http.MethodDelete, "/mfa/email", `{"password":"wrong"}`, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_PASSWORD", res.Code)

	rec, res = f.do(t, http.MethodDelete, "/mfa/email", `{"password":"`+password+`"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, res.Error)
	assert.Equal(t, "Email codes disabled for sign-in.", res.Message)
}

func TestAttemptLimiter(t *testing.T) {
	t.Parallel()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Minute,
	})
	require.NoError(t, err)
	f := newFixture(t, account.WithAttemptLimiter(limiter))

	body := `{"email":"a@x.com","password":"nope"}`
	for range 2 {
		rec, res := f.do(t, http.MethodPost, "/session/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", res.Code)
	}

	rec, res := f.do(t, http.MethodPost, "/session/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", res.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec, _ = f.do(t, http.MethodPost, "/verify", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "routes are limited independently")
}
