// Package login provides the sign-in and sign-up endpoints of local
// (email and password) principals.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrLocalAuthDisabled is returned when local (email/password) authentication
	// is disabled by configuration.
	ErrLocalAuthDisabled = errors.New("local authentication is disabled")

	// ErrSignupDisabled is returned when self sign-up is disabled by configuration.
	ErrSignupDisabled = errors.New("sign-up is disabled")

	// ErrInternalServerError is returned for unexpected failures during the login
	// process.
	ErrInternalServerError = errors.New("internal server error")
)
