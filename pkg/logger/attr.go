package logger

import (
	"log/slog"
	"strings"
	"time"
)

// Error records err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the subject user under "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// Email records a masked address under "email": the first character of the
// local part and the full domain.
func Email(address string) slog.Attr {
	local, domain, ok := strings.Cut(address, "@")
	if !ok || local == "" {
		return slog.Attr{}
	}
	return slog.String("email", local[:1]+"***@"+domain)
}

// TokenID records a credential id (jti) under "token_id".
func TokenID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("token_id", id)
}

// Factor records a second-factor kind under "factor".
func Factor(kind string) slog.Attr {
	return slog.String("factor", kind)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// HTTPRequest groups method, path, status and duration under "http".
func HTTPRequest(method, path string, status int, d time.Duration) slog.Attr {
	return slog.Group("http",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", d),
	)
}
