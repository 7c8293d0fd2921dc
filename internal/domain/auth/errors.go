package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrCodeInvalid covers a wrong, expired, or already-used login code.
	ErrCodeInvalid = errors.New("invalid or expired verification code")

	ErrUserNotFound = errors.New("user not found")
)
