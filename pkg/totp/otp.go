package totp

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pquerna "github.com/pquerna/otp/totp"
)

const (
	DefaultDigits = 6  // Standard 6-digit codes
	DefaultPeriod = 30 // 30-second step (RFC 6238)
	DefaultSkew   = 1  // Accept one step either side
	secretSize    = 20 // 160-bit secret (RFC 4226 recommendation)
)

var codeRegex = regexp.MustCompile(`^\d{6}$`)

var validateOpts = pquerna.ValidateOpts{
	Period:    DefaultPeriod,
	Skew:      DefaultSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// SecretParams labels a new secret inside authenticator apps.
type SecretParams struct {
	Issuer      string // Service name shown in the app (required)
	AccountName string // Usually the user's email (required)
}

// Key is a freshly generated shared secret and its provisioning URI.
type Key struct {
	Secret string // Base32, unpadded
	URI    string // otpauth://totp/Issuer:Account?...
}

// GenerateSecret creates a new random base32 secret and the matching
// provisioning URI.
func GenerateSecret(params SecretParams) (Key, error) {
	if strings.TrimSpace(params.Issuer) == "" {
		return Key{}, ErrMissingIssuer
	}
	if strings.TrimSpace(params.AccountName) == "" {
		return Key{}, ErrMissingAccountName
	}

	key, err := pquerna.Generate(pquerna.GenerateOpts{
		Issuer:      params.Issuer,
		AccountName: params.AccountName,
		Period:      DefaultPeriod,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Key{}, errors.Join(ErrFailedToGenerateSecret, err)
	}

	return Key{Secret: key.Secret(), URI: key.URL()}, nil
}

// Validate checks code against secret at the current time.
func Validate(code, secret string) (bool, error) {
	return ValidateAt(code, secret, time.Now())
}

// ValidateAt checks code against secret as if the current time were t.
func ValidateAt(code, secret string, t time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if !codeRegex.MatchString(code) {
		return false, ErrInvalidCode
	}

	secret = normalizeSecret(secret)
	if secret == "" {
		return false, ErrInvalidSecret
	}

	ok, err := pquerna.ValidateCustom(code, secret, t, validateOpts)
	if err != nil {
		return false, errors.Join(ErrInvalidSecret, err)
	}
	return ok, nil
}

// GenerateCodeAt returns the code for the step containing t.
// Used by tests and by tooling that needs to emulate an authenticator.
func GenerateCodeAt(secret string, t time.Time) (string, error) {
	secret = normalizeSecret(secret)
	if secret == "" {
		return "", ErrInvalidSecret
	}

	code, err := pquerna.GenerateCodeCustom(secret, t, validateOpts)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateCode, err)
	}
	return code, nil
}

func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}
