package email

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/projectauth/pkg/logger"
)

// LogSender drops messages after logging their envelope.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender returns a sender that logs to l. A nil l discards.
func NewLogSender(l *slog.Logger) *LogSender {
	if l == nil {
		l = logger.Discard()
	}
	return &LogSender{log: l.With(logger.Component("email"))}
}

func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email not delivered: log driver",
		logger.Email(params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
