package repository

import "errors"

// Sentinel kinds for stub storage errors.
var (
	ErrNotFound       = errors.New("email not found")
	ErrDuplicateEmail = errors.New("UNIQUE constraint failed: users.email")
	ErrEmptyEmail     = errors.New("email must not be empty")
	ErrNoMetrics      = errors.New("no metrics found for user")
)
