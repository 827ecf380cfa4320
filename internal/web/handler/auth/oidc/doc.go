// Package oidc provides handlers for OpenID Connect (OIDC) sign-in.
//
// The flow includes:
//   - Login initiation with CSRF protection via a state token kept in a
//     short-lived flow session on the shared session storage
//   - Authorization callback handling with ID token verification
//   - Principal creation with the default role on first sign-in
//   - Session creation and cookie management; the raw ID token is kept in
//     the session for provider logout (see package logout)
//
// The routes are registered only when an OIDC provider is configured:
//
//	// GET /auth/oidc/login    - Initiate OIDC login flow
//	// GET /auth/oidc/callback - Handle provider callback
package oidc
