package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidValue = errors.New("invalid value")
)

// Detail texts returned in {"detail": ...} bodies.
const (
	detailEmailNotFound = "Email not found"
	detailModelNotFound = "Model not found"
	detailNoMetrics     = "No metrics found for user"
)
