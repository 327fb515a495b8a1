package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/projectauth/pkg/jwt"
	"github.com/dmitrymomot/projectauth/pkg/logger"
)

// Token purposes. A token signed for one purpose is rejected by every other.
const (
	purposeSession      = "session"
	purposeVerification = "email_verification"
	purposeChallenge    = "login_challenge"
)

// SessionClaims are the claims of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"pur"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
}

func (c *SessionClaims) identity() Identity {
	id := Identity{
		UserID:  c.Subject,
		Email:   c.Email,
		Name:    c.Name,
		TokenID: c.ID,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.UTC()
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.UTC()
	}
	return id
}

// tokenState is the classification used by Refresh.
type tokenState uint8

const (
	stateUnparsable tokenState = iota
	stateValid
	stateExpiredButParsable
)

// TokenService issues, verifies and renews session tokens.
type TokenService struct {
	keys   *Keys
	store  UserStore
	signer *jwt.Service
	opts   options
}

// NewTokenService creates the service. A nil keys value makes every call
// fail with ErrConfig.
func NewTokenService(keys *Keys, store UserStore, opts ...Option) *TokenService {
	s := &TokenService{keys: keys, store: store, opts: applyOptions(opts)}
	if keys != nil {
		s.signer = keys.signer(s.opts.now)
	}
	return s
}

// IssueToken signs a session token for an existing user.
func (s *TokenService) IssueToken(ctx context.Context, userID string) (*IssuedToken, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return s.issue(user)
}

// VerifyToken returns the identity carried by a valid session token.
func (s *TokenService) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}

	state, claims, err := s.classify(token)
	switch state {
	case stateExpiredButParsable:
		return nil, errors.Join(ErrTokenExpired, err)
	case stateUnparsable:
		return nil, errors.Join(ErrTokenInvalid, err)
	}

	if err := s.checkRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	id := claims.identity()
	return &id, nil
}

// Refresh renews a session token.
//
// A valid token and a genuine expired token are both renewed for another
// full lifetime, provided the subject still exists. Anything else fails with
// ErrAuthenticationExpired and the caller should drop the stored credential.
func (s *TokenService) Refresh(ctx context.Context, token string) (*IssuedToken, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}
	log := s.opts.logger.With(logger.Component("token"), logger.Event("refresh"))

	state, claims, err := s.classify(token)
	if state == stateUnparsable {
		log.WarnContext(ctx, "refresh rejected: token unparsable", logger.Error(err))
		return nil, errors.Join(ErrAuthenticationExpired, ErrTokenInvalid)
	}

	if err := s.checkRevoked(ctx, claims.ID); err != nil {
		if !errors.Is(err, ErrTokenInvalid) {
			log.ErrorContext(ctx, "refresh failed: denylist lookup", logger.Error(err))
			return nil, err
		}
		log.WarnContext(ctx, "refresh rejected: token revoked", logger.UserID(claims.Subject), logger.TokenID(claims.ID))
		return nil, errors.Join(ErrAuthenticationExpired, err)
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.WarnContext(ctx, "refresh rejected: subject no longer exists", logger.UserID(claims.Subject))
			return nil, errors.Join(ErrAuthenticationExpired, ErrUserNotFound)
		}
		log.ErrorContext(ctx, "refresh failed: user lookup", logger.UserID(claims.Subject), logger.Error(err))
		return nil, fmt.Errorf("refresh: %w", err)
	}

	issued, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "session renewed",
		logger.UserID(user.ID),
		slog.Bool("was_expired", state == stateExpiredButParsable),
	)
	return issued, nil
}

// Revoke denylists a session token until its expiry. Without a denylist it
// only checks that the token is genuine. Tokens that are already expired
// are ignored.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if s.signer == nil {
		return ErrConfig
	}
	state, claims, err := s.classify(token)
	switch state {
	case stateUnparsable:
		return errors.Join(ErrTokenInvalid, err)
	case stateExpiredButParsable:
		return nil
	}
	if s.opts.denylist == nil || claims.ID == "" {
		return nil
	}
	if err := s.opts.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.UTC()); err != nil {
		s.opts.logger.ErrorContext(ctx, "failed to revoke token",
			logger.Component("token"),
			logger.TokenID(claims.ID),
			logger.Error(err),
		)
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// issue signs a token for user without a store round trip.
func (s *TokenService) issue(user *User) (*IssuedToken, error) {
	now := s.opts.now()
	expiresAt := now.Add(s.keys.cfg.SessionTTL).Truncate(time.Second)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.keys.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purposeSession,
		Email:   user.Email,
		Name:    user.Name,
	}

	token, err := s.signer.Generate(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &IssuedToken{Token: token, ExpiresAt: expiresAt, Identity: claims.identity()}, nil
}

func (s *TokenService) classify(token string) (tokenState, *SessionClaims, error) {
	var claims SessionClaims
	err := s.signer.Parse(token, &claims)
	switch {
	case err != nil && !errors.Is(err, jwt.ErrExpiredToken):
		return stateUnparsable, nil, err
	case claims.Purpose != purposeSession || claims.Subject == "":
		return stateUnparsable, nil, ErrTokenInvalid
	case err != nil:
		return stateExpiredButParsable, &claims, err
	default:
		return stateValid, &claims, nil
	}
}

func (s *TokenService) checkRevoked(ctx context.Context, tokenID string) error {
	return checkDenylist(ctx, s.opts.denylist, tokenID)
}

// checkDenylist fails with ErrTokenInvalid when tokenID has been revoked.
func checkDenylist(ctx context.Context, d Denylist, tokenID string) error {
	if d == nil || tokenID == "" {
		return nil
	}
	revoked, err := d.IsRevoked(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return ErrTokenInvalid
	}
	return nil
}
