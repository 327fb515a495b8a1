package session

import "time"

// Config holds cookie names and lifetimes.
type Config struct {
	TokenCookie     string        `env:"SESSION_TOKEN_COOKIE" envDefault:"auth_token"`
	IndicatorCookie string        `env:"SESSION_INDICATOR_COOKIE" envDefault:"user_logged_in"`
	TokenTTL        time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"168h"`

	StagedCookie string        `env:"SESSION_STAGED_TOTP_COOKIE" envDefault:"temp_totp_secret"`
	StagedTTL    time.Duration `env:"SESSION_STAGED_TOTP_TTL" envDefault:"15m"`
}

// DefaultConfig returns the default cookie names and lifetimes.
func DefaultConfig() Config {
	return Config{
		TokenCookie:     "auth_token",
		IndicatorCookie: "user_logged_in",
		TokenTTL:        7 * 24 * time.Hour,
		StagedCookie:    "temp_totp_secret",
		StagedTTL:       15 * time.Minute,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TokenCookie == "" {
		c.TokenCookie = d.TokenCookie
	}
	if c.IndicatorCookie == "" {
		c.IndicatorCookie = d.IndicatorCookie
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = d.TokenTTL
	}
	if c.StagedCookie == "" {
		c.StagedCookie = d.StagedCookie
	}
	if c.StagedTTL <= 0 {
		c.StagedTTL = d.StagedTTL
	}
	return c
}
