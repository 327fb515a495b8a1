// Package totp generates and validates RFC 6238 time-based one-time passwords
// and the numeric codes used by the email second factor.
//
// Secret generation and code validation are backed by github.com/pquerna/otp.
// Codes are six digits over 30 second steps with HMAC-SHA1, which is what
// Google Authenticator, 1Password and compatible apps expect. Validation
// accepts the previous, current and next step (skew of one) to absorb clock
// drift between client and server.
//
// # Usage
//
//	key, err := totp.GenerateSecret(totp.SecretParams{
//	    Issuer:      "ProjectHub",
//	    AccountName: "alice@example.com",
//	})
//	// key.Secret is the base32 shared secret, key.URI the otpauth:// URI.
//
//	ok, err := totp.Validate("123456", key.Secret)
//
// GenerateEmailCode returns a uniformly distributed six digit code in
// [100000, 999999] drawn from crypto/rand.
//
// # Error Handling
//
// Validate returns (false, nil) for a well-formed code that does not match and
// an error wrapping ErrInvalidCode or ErrInvalidSecret for malformed input.
package totp
