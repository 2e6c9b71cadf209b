package domain

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials hides whether the email, status or password was wrong.
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrWeakPassword           = errors.New("new password must be at least 6 characters")
	ErrPrincipalNotFound      = errors.New("principal not found")
)

// MinPasswordLength is the shortest password accepted on rotation.
const MinPasswordLength = 6
