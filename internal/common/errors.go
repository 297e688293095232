// Package common defines shared constants and sentinel errors used across
// client and server layers of eumgrid. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Validation errors, raised before any network call.
	ErrValidation = errors.New("validation error")

	// Transport-level errors.
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Renewal failed; the session has been cleared.
	ErrSessionTerminated = errors.New("session terminated")

	// A grid response arrived for a request that is no longer current.
	ErrSuperseded = errors.New("superseded by a newer request")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Server-side lookups.
	ErrorNotFound = errors.New("not found")
)
