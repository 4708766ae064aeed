// Package services implements the application logic between the HTTP
// handlers and the repositories. Services own transaction boundaries and
// translate storage errors into the sentinels below.
package services

import "errors"

var (
	// ErrValidation is returned when input fails a semantic check. The
	// wrapped message names the offending field.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials is returned on login with an unknown email or
	// a wrong password. Callers must not learn which of the two it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for expired, revoked or garbled tokens.
	ErrInvalidToken = errors.New("invalid token")
)
