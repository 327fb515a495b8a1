package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/i18n"
	"github.com/dmitrymomot/projectauth/pkg/logger"
)

// maxBodySize bounds request bodies; every payload here is a few fields.
const maxBodySize = 64 << 10

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type challengeView struct {
	Token     string    `json:"token"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type response struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message,omitempty"`
	Error       string         `json:"error,omitempty"`
	Code        string         `json:"code,omitempty"`
	RedirectURL string         `json:"redirectUrl,omitempty"`
	QRCode      string         `json:"qrCode,omitempty"`
	Secret      string         `json:"secret,omitempty"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	User        *userView      `json:"user,omitempty"`
	Challenge   *challengeView `json:"challenge,omitempty"`
}

func identityView(id auth.Identity) *userView {
	return &userView{ID: id.UserID, Email: id.Email, Name: id.Name}
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ok writes a 200 success with the localized message for key.
func (h *Handler) ok(w http.ResponseWriter, r *http.Request, key string, body response) {
	body.Success = true
	if key != "" {
		body.Message = h.translator.Tc(r.Context(), key)
	}
	writeJSON(w, http.StatusOK, body)
}

// fail maps err through the error table.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	h.writeError(w, r, err, status, code)
}

// failAuth maps err for routes that authenticate the caller.
func (h *Handler) failAuth(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyAuth(err)
	h.writeError(w, r, err, status, code)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, status int, code string) {
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "account request failed",
			logger.Component("account"),
			slog.String("code", code),
			logger.Error(err),
		)
	}
	writeJSON(w, status, response{
		Error: h.translator.T(i18n.GetLocale(r.Context()), messageKey(code)),
		Code:  code,
	})
}

// decode reads a JSON object into v. Unknown fields and trailing data are
// rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("%w: content type must be application/json", ErrInvalidRequest)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrInvalidRequest)
		}
		return errors.Join(ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidRequest)
	}
	return nil
}
