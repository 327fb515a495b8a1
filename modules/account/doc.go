// Package account exposes the session and second-factor operations as a
// JSON HTTP API.
//
//	POST   /session/login      {email, password}
//	POST   /session/challenge  {challenge, code}
//	POST   /session/refresh
//	POST   /session/logout
//	GET    /session
//	GET    /verify?token=...
//	POST   /verify             {email, locale}
//	GET    /mfa/totp/setup
//	POST   /mfa/totp/setup     {token}
//	POST   /mfa/totp/disable   {password, token}
//	POST   /mfa/email
//	DELETE /mfa/email          {password}
//
// Every response is a JSON object with a success flag. Failures carry a
// localized error message and a stable upper-case code; the status comes
// from a single table over the auth error taxonomy. The /mfa routes and
// GET /session need a valid session token.
package account
