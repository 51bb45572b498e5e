package domain

import "errors"

var (
	// ErrUserNotFound is returned by lookups when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by inserts that violate the unique email index.
	ErrEmailTaken = errors.New("email already registered")
)
