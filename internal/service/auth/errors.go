package auth

import "errors"

// Common authentication errors
var (
	// ErrInvalidToken indicates the token is malformed, has a bad signature,
	// or carries invalid claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token is valid but expired.
	ErrExpiredToken = errors.New("token expired")
)
