// Package auth implements the session credential, email ownership
// verification and second-factor flows.
//
// Process-wide key material is built once with NewKeys and handed to every
// service. NewKeys fails with ErrConfig when the signing secret is missing,
// so no service ever signs or accepts a token without a key.
//
// Services:
//
//   - TokenService issues 7-day session tokens, verifies them and renews them.
//     Renewal accepts genuine but expired tokens as long as the subject still
//     exists.
//   - EmailVerificationService issues 24-hour verification tokens, stores the
//     latest one on the user record and flips the verified flag when the
//     stored token is presented in time.
//   - TOTPService stages a fresh secret in an encrypted, user-bound, 15 minute
//     payload and persists it only after a valid code proves possession.
//   - EmailFactorService toggles the email second factor.
//   - LoginService checks passwords and steps up to a TOTP or emailed code
//     when a second factor is enabled.
//
// Persistence and mail delivery stay behind the UserStore and Mailer
// interfaces. An optional Denylist adds server-side revocation on logout.
//
// Errors returned by the services wrap the sentinel values in errors.go;
// compare with errors.Is.
package auth
