// Package common defines shared constants and sentinel errors used across
// blobgate layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInternal     = errors.New("internal error")

	// Failures of the collaborators behind the gateway: blob/identity
	// stores, the external encoder and the local scratch area.
	ErrorStorage = errors.New("storage error")
	ErrorEncode  = errors.New("encode error")
	ErrorIO      = errors.New("io error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
