package account

import "net/http"

type codeRequest struct {
	Token string `json:"token"`
}

type disableTOTPRequest struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) beginTOTP(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	enrollment, err := h.svc.TOTP.BeginEnrollment(r.Context(), id, id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Staged.Set(w, r, enrollment.Staged); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, "", response{QRCode: enrollment.QRCode, Secret: enrollment.Secret})
}

// completeTOTP consumes the staged secret. The slot is cleared before the
// outcome is known so a failed attempt has to start over.
func (h *Handler) completeTOTP(w http.ResponseWriter, r *http.Request) {
	staged, _ := h.svc.Staged.Get(r)
	h.svc.Staged.Clear(w, r)

	var req codeRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := caller(r)
	if err := h.svc.TOTP.CompleteEnrollment(r.Context(), id, id.UserID, staged, req.Token); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, "totp.enabled", response{})
}

func (h *Handler) disableTOTP(w http.ResponseWriter, r *http.Request) {
	var req disableTOTPRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := caller(r)
	if err := h.svc.TOTP.Disable(r.Context(), id, id.UserID, req.Password, req.Token); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, "totp.disabled", response{})
}

func (h *Handler) enableEmailFactor(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	if err := h.svc.EmailFactor.Enable(r.Context(), id, id.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, "email_factor.enabled", response{})
}

func (h *Handler) disableEmailFactor(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := caller(r)
	if err := h.svc.EmailFactor.Disable(r.Context(), id, id.UserID, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, "email_factor.disabled", response{})
}
