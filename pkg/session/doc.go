// Package session carries the session credential and the staged TOTP secret
// between the server and the browser.
//
// The session credential travels in the auth_token cookie. It is readable by
// script, lives for the token lifetime (7 days by default) on path "/" with
// SameSite=Lax, and is Secure whenever the request came in over TLS or the
// cookie policy forces it. A companion user_logged_in=true cookie with the
// same attributes lets client code detect login state without touching the
// credential. API clients may present the same token with an
// Authorization: Bearer header instead (see HeaderTransport and
// CompositeTransport).
//
// The staged TOTP secret lives in temp_totp_secret, an HttpOnly cookie with a
// 15 minute lifetime. Its value is opaque here; callers encrypt it first.
//
// Nothing in this package verifies tokens.
package session
