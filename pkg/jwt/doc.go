// Package jwt signs and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5, and ships the HTTP glue around them: token
// extractors, an authentication middleware and context helpers.
//
// # Expiry semantics
//
// The expiry boundary is inclusive: a token whose exp equals the current time
// is expired. Parse verifies the signature before it looks at time claims, so
// when it returns ErrExpiredToken the claims argument has already been
// populated from a genuine token. Callers that support soft renewal can use
// those claims; everybody else should treat the error as a rejection.
//
//	svc, err := jwt.NewFromString(secret, jwt.WithIssuer("projectauth"))
//	if err != nil {
//		return err
//	}
//
//	token, err := svc.Generate(jwt.RegisteredClaims{
//		Subject:   userID,
//		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
//	})
//
//	var claims jwt.RegisteredClaims
//	switch err := svc.Parse(token, &claims); {
//	case errors.Is(err, jwt.ErrExpiredToken):
//		// signature ok, claims decoded, token expired
//	case err != nil:
//		// forged, malformed or signed with another key
//	}
//
// # Middleware
//
// Middleware takes an Authenticator that turns the raw token into the caller's
// claims. The resolved claims and the raw token are stored in the request
// context (see GetClaims and GetToken).
package jwt
