// Package cookie writes and reads HTTP cookies under a single attribute
// policy.
//
// A Manager holds the defaults (path, domain, SameSite, HttpOnly and the
// Secure policy); every Set call may override them per cookie. The Secure flag
// is set when the manager is configured with Secure=true or when the request
// arrived over TLS, either directly or behind a proxy that reports
// X-Forwarded-Proto: https.
//
//	m := cookie.New(cookie.WithDomain("example.com"))
//	m.Set(w, r, "user_logged_in", "true", cookie.WithMaxAge(7*24*3600), cookie.WithHTTPOnly(false))
//	v, err := m.Get(r, "user_logged_in")
//	m.Delete(w, r, "user_logged_in")
//
// Values are stored as given; callers that need confidentiality encrypt the
// value before Set.
package cookie
