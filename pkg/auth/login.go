package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/projectauth/pkg/jwt"
	"github.com/dmitrymomot/projectauth/pkg/logger"
	"github.com/dmitrymomot/projectauth/pkg/totp"
)

// Challenge kinds.
const (
	ChallengeTOTP  = "totp"
	ChallengeEmail = "email"
)

// ChallengeClaims are the claims of a login step-up challenge.
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"pur"`
	Kind    string `json:"kind"`
	CodeMAC string `json:"cmac,omitempty"`
}

// Challenge asks the client for a second factor code.
type Challenge struct {
	Token     string
	Kind      string
	ExpiresAt time.Time
}

// LoginResult holds either a session or a challenge.
type LoginResult struct {
	Session   *IssuedToken
	Challenge *Challenge
}

// LoginService authenticates with email and password and steps up to a
// second factor when the account has one.
type LoginService struct {
	keys   *Keys
	store  UserStore
	mailer Mailer
	tokens *TokenService
	totp   *TOTPService
	signer *jwt.Service
	opts   options
}

// NewLoginService creates the service. tokens issues the final session.
func NewLoginService(keys *Keys, store UserStore, mailer Mailer, tokens *TokenService, opts ...Option) *LoginService {
	s := &LoginService{
		keys:   keys,
		store:  store,
		mailer: mailer,
		tokens: tokens,
		totp:   NewTOTPService(keys, store, opts...),
		opts:   applyOptions(opts),
	}
	if keys != nil {
		s.signer = keys.signer(s.opts.now)
	}
	return s
}

// Login checks the credentials. Unknown addresses and wrong passwords both
// yield ErrInvalidCredentials. TOTP takes precedence over the email factor.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}
	log := s.opts.logger.With(logger.Component("login"))

	email = NormalizeEmail(email)
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		_ = CheckPassword(dummyHash(), password)
		log.WarnContext(ctx, "login failed: unknown address", logger.Email(email))
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		log.WarnContext(ctx, "login failed: wrong password", logger.UserID(user.ID))
		return nil, ErrInvalidCredentials
	}

	switch {
	case user.TOTP.Enabled():
		ch, err := s.challenge(user, ChallengeTOTP, "")
		if err != nil {
			return nil, err
		}
		return &LoginResult{Challenge: ch}, nil

	case user.EmailTwoFactor:
		code, err := totp.GenerateEmailCode()
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		ch, err := s.challenge(user, ChallengeEmail, code)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendLoginCode(ctx, LoginCodeMail{
			To:        user.Email,
			Name:      user.Name,
			Code:      code,
			ExpiresAt: ch.ExpiresAt,
		}); err != nil {
			log.ErrorContext(ctx, "failed to send login code", logger.UserID(user.ID), logger.Error(err))
			return nil, errors.Join(ErrMailFailed, err)
		}
		return &LoginResult{Challenge: ch}, nil
	}

	issued, err := s.tokens.issue(user)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "login succeeded", logger.UserID(user.ID))
	return &LoginResult{Session: issued}, nil
}

// CompleteChallenge exchanges a challenge and a valid code for a session.
func (s *LoginService) CompleteChallenge(ctx context.Context, challenge, code string) (*IssuedToken, error) {
	if s.signer == nil {
		return nil, ErrConfig
	}

	var claims ChallengeClaims
	if err := s.signer.Parse(challenge, &claims); err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, errors.Join(ErrTokenExpired, err)
		}
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	if claims.Purpose != purposeChallenge || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	log := s.opts.logger.With(logger.Component("login"), logger.UserID(claims.Subject), logger.Factor(claims.Kind))

	if err := s.tokens.checkRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("complete challenge: %w", err)
	}

	switch claims.Kind {
	case ChallengeTOTP:
		err = s.totp.verifyPersisted(user, code)
	case ChallengeEmail:
		if !hmac.Equal([]byte(claims.CodeMAC), []byte(s.codeMAC(claims.ID, code))) {
			err = ErrInvalidCode
		}
	default:
		err = ErrTokenInvalid
	}
	if err != nil {
		log.WarnContext(ctx, "challenge rejected", logger.Error(err))
		return nil, err
	}

	if s.opts.denylist != nil {
		if err := s.opts.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.UTC()); err != nil {
			return nil, fmt.Errorf("consume challenge: %w", err)
		}
	}

	issued, err := s.tokens.issue(user)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "login succeeded after challenge")
	return issued, nil
}

func (s *LoginService) challenge(user *User, kind, code string) (*Challenge, error) {
	now := s.opts.now()
	expiresAt := now.Add(s.keys.cfg.ChallengeTTL).Truncate(time.Second)

	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.keys.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purposeChallenge,
		Kind:    kind,
	}
	if code != "" {
		claims.CodeMAC = s.codeMAC(claims.ID, code)
	}

	token, err := s.signer.Generate(claims)
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}
	return &Challenge{Token: token, Kind: kind, ExpiresAt: expiresAt}, nil
}

// codeMAC binds an emailed code to one challenge.
func (s *LoginService) codeMAC(challengeID, code string) string {
	mac := hmac.New(sha256.New, s.keys.signingSecret)
	mac.Write([]byte(purposeChallenge + ":" + challengeID + ":" + code))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
