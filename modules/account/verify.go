package account

import (
	"net/http"

	"github.com/dmitrymomot/projectauth/pkg/i18n"
)

type verifyRequest struct {
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

func (h *Handler) requestVerification(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = i18n.GetLocale(r.Context())
	}

	res, err := h.svc.Verification.RequestVerification(r.Context(), req.Email, locale)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !res.Sent {
		h.ok(w, r, "verify.already_verified", response{})
		return
	}
	h.ok(w, r, "verify.sent", response{})
}

func (h *Handler) confirmVerification(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Verification.ConfirmVerification(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key := "verify.confirmed"
	if res.AlreadyVerified {
		key = "verify.already_verified"
	}
	h.ok(w, r, key, response{RedirectURL: res.RedirectURL})
}
