// Package common defines shared constants and sentinel errors used across
// dealflow layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
	ErrVersionConflict = errors.New("version conflict")

	// Validation errors. Wrapped with the offending field name.
	ErrValidation = errors.New("validation error")

	// Deal lifecycle errors.
	ErrInvalidTransition = errors.New("invalid status transition")

	// Signature workflow errors.
	ErrAlreadySigned  = errors.New("already signed")
	ErrDocumentLocked = errors.New("document is locked")

	// Token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenUsed           = errors.New("token already used")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
