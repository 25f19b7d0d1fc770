package smoke

import "errors"

// Sentinel kinds for smoke failures.
var (
	ErrStep     = errors.New("smoke step failed")
	ErrMismatch = errors.New("history mismatch")
)
