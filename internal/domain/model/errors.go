package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrEmptyEmail      = errors.New("email must not be empty")
	ErrIncompleteDraft = errors.New("draft is missing a required field")
	ErrInvalidEntry    = errors.New("metric entry has a negative or non-finite value")
)
