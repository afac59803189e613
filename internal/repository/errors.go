package repository

import "errors"

var (
	// Common errors
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// User errors
	ErrEmailExists     = errors.New("email already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")

	// Token errors
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenNotFound = errors.New("token not found")
)
