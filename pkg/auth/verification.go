package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/projectauth/pkg/jwt"
	"github.com/dmitrymomot/projectauth/pkg/logger"
)

// VerificationClaims are the claims of an email verification token.
type VerificationClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"pur"`
	Email   string `json:"email"`
}

// VerificationRequest is the outcome of RequestVerification.
type VerificationRequest struct {
	// Sent is false when the address was already verified.
	Sent      bool
	ExpiresAt time.Time
}

// VerificationResult is the outcome of ConfirmVerification.
type VerificationResult struct {
	UserID          string
	AlreadyVerified bool
	RedirectURL     string
}

// EmailVerificationService proves control of an email address.
type EmailVerificationService struct {
	keys   *Keys
	store  UserStore
	mailer Mailer
	signer *jwt.Service
	opts   options
}

// NewEmailVerificationService creates the service.
func NewEmailVerificationService(keys *Keys, store UserStore, mailer Mailer, opts ...Option) *EmailVerificationService {
	s := &EmailVerificationService{keys: keys, store: store, mailer: mailer, opts: applyOptions(opts)}
	if keys != nil {
		s.signer = keys.signer(s.opts.now)
	}
	return s
}

// RequestVerification stores a fresh token on the user record and mails it.
// Already verified users get a successful result and no mail; their record
// is left untouched. A new request supersedes every earlier token.
func (s *EmailVerificationService) RequestVerification(ctx context.Context, email, locale string) (*VerificationRequest, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}
	log := s.opts.logger.With(logger.Component("verification"), logger.Event("request"))

	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.WarnContext(ctx, "verification requested for unknown address", logger.Email(email))
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("request verification: %w", err)
	}
	if user.EmailVerified {
		return &VerificationRequest{Sent: false}, nil
	}

	now := s.opts.now()
	expiresAt := now.Add(s.keys.cfg.VerificationTTL).Truncate(time.Second)

	token, err := s.signer.Generate(VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.keys.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purposeVerification,
		Email:   user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("sign verification token: %w", err)
	}

	if err := s.store.SetVerificationToken(ctx, user.ID, token, expiresAt); err != nil {
		log.ErrorContext(ctx, "failed to store verification token", logger.UserID(user.ID), logger.Error(err))
		return nil, errors.Join(ErrUpdateFailed, err)
	}

	if err := s.mailer.SendVerification(ctx, VerificationMail{
		To:        user.Email,
		Name:      user.Name,
		Locale:    locale,
		Link:      s.keys.cfg.VerificationURL(url.QueryEscape(token)),
		ExpiresAt: expiresAt,
	}); err != nil {
		log.ErrorContext(ctx, "failed to send verification email", logger.UserID(user.ID), logger.Error(err))
		return nil, errors.Join(ErrMailFailed, err)
	}

	log.InfoContext(ctx, "verification email sent", logger.UserID(user.ID))
	return &VerificationRequest{Sent: true, ExpiresAt: expiresAt}, nil
}

// ConfirmVerification marks the address verified when token is the one
// currently stored on the record and the stored expiry has not passed.
func (s *EmailVerificationService) ConfirmVerification(ctx context.Context, token string) (*VerificationResult, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}
	log := s.opts.logger.With(logger.Component("verification"), logger.Event("confirm"))

	var claims VerificationClaims
	if err := s.signer.Parse(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, errors.Join(ErrTokenExpired, err)
		}
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	if claims.Purpose != purposeVerification || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, errors.Join(ErrTokenInvalid, ErrUserNotFound)
		}
		return nil, fmt.Errorf("confirm verification: %w", err)
	}

	result := &VerificationResult{UserID: user.ID, RedirectURL: s.keys.cfg.VerifiedRedirectURL()}
	if user.EmailVerified {
		result.AlreadyVerified = true
		return result, nil
	}

	if user.VerificationToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.VerificationToken), []byte(token)) != 1 ||
		NormalizeEmail(claims.Email) != NormalizeEmail(user.Email) {
		log.WarnContext(ctx, "stale or foreign verification token", logger.UserID(user.ID))
		return nil, ErrTokenInvalid
	}
	if user.VerificationTokenExpires == nil || !s.opts.now().Before(*user.VerificationTokenExpires) {
		return nil, ErrTokenExpired
	}

	if err := s.store.MarkEmailVerified(ctx, user.ID); err != nil {
		log.ErrorContext(ctx, "failed to mark email verified", logger.UserID(user.ID), logger.Error(err))
		return nil, errors.Join(ErrUpdateFailed, err)
	}

	log.InfoContext(ctx, "email verified", logger.UserID(user.ID))
	return result, nil
}
