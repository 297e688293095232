package shared

import "errors"

var (
	// auth-specific errors
	ErrorInvalidLoginPassword = errors.New("invalid login/password")
	ErrorNoRefreshToken       = errors.New("no refresh token")

	// procedure-specific errors
	ErrorUnknownProcedure   = errors.New("unknown procedure")
	ErrorParameterMismatch  = errors.New("parameters and parameter types differ in length")
	ErrorInvalidRequestBody = errors.New("invalid request body")
)
