// Package common defines shared constants and sentinel errors used across
// client layers of Dispersed. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Resource-level errors.
	ErrorNotFound = errors.New("not found")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
