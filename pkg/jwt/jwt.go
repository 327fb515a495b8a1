package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only signing method accepted by Parse.
const Algorithm = "HS256"

type (
	// Claims is the interface every claims value must satisfy.
	Claims = gojwt.Claims
	// RegisteredClaims are the RFC 7519 registered claims.
	RegisteredClaims = gojwt.RegisteredClaims
	// NumericDate is a JSON numeric date with second precision.
	NumericDate = gojwt.NumericDate
)

// NewNumericDate truncates t to the token time precision.
func NewNumericDate(t time.Time) *NumericDate {
	return gojwt.NewNumericDate(t)
}

// Service signs and verifies tokens with a single HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer makes Parse require the given iss claim.
// Generate does not stamp it; callers set Issuer on their claims.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// New creates a service for the given signing key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	s := &Service{
		signingKey: signingKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string keys.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Issuer returns the issuer the service requires, if any.
func (s *Service) Issuer() string {
	return s.issuer
}

// Generate signs claims with HS256.
func (s *Service) Generate(claims Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}
	return token, nil
}

// Parse verifies tokenString and decodes it into claims.
//
// A token without exp is rejected. ErrExpiredToken is returned only when
// expiry is the sole failure: the signature has been verified, every other
// claim check passed and claims holds the decoded values.
func (s *Service) Parse(tokenString string, claims Claims) error {
	if tokenString == "" {
		return ErrMissingToken
	}
	if claims == nil {
		return ErrMissingClaims
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{Algorithm}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	_, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	switch {
	case err == nil:
		return nil
	case onlyExpired(err):
		return errors.Join(ErrExpiredToken, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}

// claimFailures are the validation errors golang-jwt may join with
// ErrTokenExpired.
var claimFailures = []error{
	gojwt.ErrTokenMalformed,
	gojwt.ErrTokenUnverifiable,
	gojwt.ErrTokenSignatureInvalid,
	gojwt.ErrTokenRequiredClaimMissing,
	gojwt.ErrTokenInvalidAudience,
	gojwt.ErrTokenInvalidIssuer,
	gojwt.ErrTokenInvalidSubject,
	gojwt.ErrTokenUsedBeforeIssued,
	gojwt.ErrTokenNotValidYet,
	gojwt.ErrTokenInvalidId,
}

func onlyExpired(err error) bool {
	if !errors.Is(err, gojwt.ErrTokenExpired) {
		return false
	}
	for _, e := range claimFailures {
		if errors.Is(err, e) {
			return false
		}
	}
	return true
}

func (s *Service) keyFunc(t *gojwt.Token) (any, error) {
	if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return s.signingKey, nil
}
