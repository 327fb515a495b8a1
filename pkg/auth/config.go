package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/jwt"
	"github.com/dmitrymomot/projectauth/pkg/logger"
	"github.com/dmitrymomot/projectauth/pkg/secrets"
)

// Key derivations accepted in Config.KeyDerivation.
const (
	KeyDerivationHKDF   = "hkdf"
	KeyDerivationSHA256 = "sha256"
)

// HKDF parameters for the at-rest key. Changing them orphans stored secrets.
const (
	hkdfSalt = "projectauth"
	hkdfInfo = "projectauth/secrets-at-rest/v1"
)

// Config holds the authentication settings read from the environment.
type Config struct {
	SigningSecret string `env:"AUTH_SIGNING_SECRET"`
	EncryptionKey string `env:"AUTH_ENCRYPTION_KEY"`
	// KeyDerivation turns EncryptionKey into the AES key: "hkdf", or
	// "sha256" to read secrets written with a bare digest.
	KeyDerivation string `env:"AUTH_KEY_DERIVATION" envDefault:"hkdf"`

	Issuer     string `env:"AUTH_ISSUER" envDefault:"projectauth"`
	TOTPIssuer string `env:"AUTH_TOTP_ISSUER" envDefault:"ProjectAuth"`

	SessionTTL      time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`
	VerificationTTL time.Duration `env:"AUTH_VERIFICATION_TTL" envDefault:"24h"`
	TOTPSetupTTL    time.Duration `env:"AUTH_TOTP_SETUP_TTL" envDefault:"15m"`
	ChallengeTTL    time.Duration `env:"AUTH_CHALLENGE_TTL" envDefault:"10m"`

	AppURL               string `env:"AUTH_APP_URL" envDefault:"http://localhost:8080"`
	VerifiedRedirectPath string `env:"AUTH_VERIFIED_REDIRECT_PATH" envDefault:"/dashboard"`
}

// DefaultConfig returns the defaults without any secrets.
func DefaultConfig() Config {
	return Config{
		KeyDerivation:        KeyDerivationHKDF,
		Issuer:               "projectauth",
		TOTPIssuer:           "ProjectAuth",
		SessionTTL:           7 * 24 * time.Hour,
		VerificationTTL:      24 * time.Hour,
		TOTPSetupTTL:         15 * time.Minute,
		ChallengeTTL:         10 * time.Minute,
		AppURL:               "http://localhost:8080",
		VerifiedRedirectPath: "/dashboard",
	}
}

// VerificationURL is the link mailed to the user.
func (c Config) VerificationURL(token string) string {
	return strings.TrimRight(c.AppURL, "/") + "/verify?token=" + token
}

// VerifiedRedirectURL is where the client goes after a successful verification.
func (c Config) VerifiedRedirectURL() string {
	return strings.TrimRight(c.AppURL, "/") + "/" + strings.TrimLeft(c.VerifiedRedirectPath, "/")
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.KeyDerivation == "" {
		c.KeyDerivation = d.KeyDerivation
	}
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if c.TOTPIssuer == "" {
		c.TOTPIssuer = d.TOTPIssuer
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.VerificationTTL <= 0 {
		c.VerificationTTL = d.VerificationTTL
	}
	if c.TOTPSetupTTL <= 0 {
		c.TOTPSetupTTL = d.TOTPSetupTTL
	}
	if c.ChallengeTTL <= 0 {
		c.ChallengeTTL = d.ChallengeTTL
	}
	if c.AppURL == "" {
		c.AppURL = d.AppURL
	}
	if c.VerifiedRedirectPath == "" {
		c.VerifiedRedirectPath = d.VerifiedRedirectPath
	}
	return c
}

// Keys is the read-only key material shared by all services.
type Keys struct {
	cfg           Config
	signingSecret []byte
	cipher        *secrets.Cipher
}

// NewKeys validates cfg and derives the signing and encryption keys.
// Without AUTH_ENCRYPTION_KEY the signing secret doubles as the encryption
// key and a warning is logged.
func NewKeys(cfg Config, log *slog.Logger) (*Keys, error) {
	if log == nil {
		log = logger.Discard()
	}
	if strings.TrimSpace(cfg.SigningSecret) == "" {
		return nil, ErrConfig
	}
	cfg = cfg.withDefaults()

	encryptionKey := cfg.EncryptionKey
	if encryptionKey == "" {
		log.Warn("AUTH_ENCRYPTION_KEY is not set, falling back to the signing secret",
			logger.Component("auth"),
		)
		encryptionKey = cfg.SigningSecret
	}

	var derivation []secrets.Option
	switch strings.ToLower(cfg.KeyDerivation) {
	case KeyDerivationHKDF:
		derivation = append(derivation, secrets.WithHKDF(hkdfSalt, hkdfInfo))
	case KeyDerivationSHA256:
	default:
		return nil, fmt.Errorf("%w: unknown key derivation %q", ErrConfig, cfg.KeyDerivation)
	}

	cipher, err := secrets.New(encryptionKey, derivation...)
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	return &Keys{
		cfg:           cfg,
		signingSecret: []byte(cfg.SigningSecret),
		cipher:        cipher,
	}, nil
}

// Config returns the effective configuration.
func (k *Keys) Config() Config {
	return k.cfg
}

// signer returns a token codec bound to the given clock.
func (k *Keys) signer(now func() time.Time) *jwt.Service {
	s, _ := jwt.New(k.signingSecret, jwt.WithIssuer(k.cfg.Issuer), jwt.WithClock(now))
	return s
}
