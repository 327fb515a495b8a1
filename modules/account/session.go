package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type challengeRequest struct {
	Challenge string `json:"challenge"`
	Code      string `json:"code"`
}

// startSession writes the session cookies for issued and answers 200.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, issued *auth.IssuedToken, key string) {
	if err := h.svc.Transport.SetToken(w, r, issued.Token, issued.TTL(h.now())); err != nil {
		h.fail(w, r, err)
		return
	}
	expiresAt := issued.ExpiresAt
	h.ok(w, r, key, response{User: identityView(issued.Identity), ExpiresAt: &expiresAt})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Login.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.failAuth(w, r, err)
		return
	}
	if res.Session != nil {
		h.startSession(w, r, res.Session, "session.signed_in")
		return
	}

	c := res.Challenge
	key := "session.challenge_totp"
	if c.Kind == auth.ChallengeEmail {
		key = "session.challenge_email"
	}
	h.ok(w, r, key, response{Challenge: &challengeView{Token: c.Token, Kind: c.Kind, ExpiresAt: c.ExpiresAt}})
}

func (h *Handler) completeChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	issued, err := h.svc.Login.CompleteChallenge(r.Context(), req.Challenge, req.Code)
	if err != nil {
		h.failAuth(w, r, err)
		return
	}
	h.startSession(w, r, issued, "session.signed_in")
}

// refresh renews the session. A credential that cannot be renewed is
// cleared so the client is sent back to sign in.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, _ := h.svc.Transport.GetToken(r)

	issued, err := h.svc.Tokens.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationExpired) {
			_ = h.svc.Transport.ClearToken(w, r)
		}
		h.fail(w, r, err)
		return
	}
	h.startSession(w, r, issued, "session.refreshed")
}

// logout clears the cookies whatever the state of the credential and
// revokes it when a denylist is configured.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if token, err := h.svc.Transport.GetToken(r); err == nil {
		if err := h.svc.Tokens.Revoke(r.Context(), token); err != nil && !errors.Is(err, auth.ErrTokenInvalid) {
			h.log.WarnContext(r.Context(), "logout could not revoke token",
				logger.Component("account"),
				logger.Error(err),
			)
		}
	}
	_ = h.svc.Transport.ClearToken(w, r)
	h.ok(w, r, "session.signed_out", response{})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	expiresAt := id.ExpiresAt.UTC().Truncate(time.Second)
	h.ok(w, r, "", response{User: identityView(id), ExpiresAt: &expiresAt})
}
