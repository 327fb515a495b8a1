package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/projectauth/pkg/logger"
)

// EmailFactorService toggles the email second factor.
type EmailFactorService struct {
	store UserStore
	opts  options
}

// NewEmailFactorService creates the service.
func NewEmailFactorService(store UserStore, opts ...Option) *EmailFactorService {
	return &EmailFactorService{store: store, opts: applyOptions(opts)}
}

// Enable turns the email factor on. Enabling is idempotent.
func (s *EmailFactorService) Enable(ctx context.Context, caller Identity, userID string) error {
	if caller.UserID == "" || caller.UserID != userID {
		return ErrUnauthorized
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return fmt.Errorf("enable email factor: %w", err)
	}
	return s.set(ctx, userID, true)
}

// Disable turns the email factor off after checking the password.
func (s *EmailFactorService) Disable(ctx context.Context, caller Identity, userID, password string) error {
	if caller.UserID == "" || caller.UserID != userID {
		return ErrUnauthorized
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("disable email factor: %w", err)
	}
	if !user.EmailTwoFactor {
		return ErrNotEnabled
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		s.opts.logger.WarnContext(ctx, "email factor disable rejected: wrong password",
			logger.Component("email_factor"),
			logger.UserID(userID),
		)
		return err
	}
	return s.set(ctx, userID, false)
}

func (s *EmailFactorService) set(ctx context.Context, userID string, enabled bool) error {
	if err := s.store.SetEmailTwoFactor(ctx, userID, enabled); err != nil {
		s.opts.logger.ErrorContext(ctx, "failed to toggle email factor",
			logger.Component("email_factor"),
			logger.UserID(userID),
			logger.Error(err),
		)
		return errors.Join(ErrUpdateFailed, err)
	}
	s.opts.logger.InfoContext(ctx, "email factor toggled",
		logger.Component("email_factor"),
		logger.UserID(userID),
		slog.Bool("enabled", enabled),
	)
	return nil
}
