package identity

import "errors"

// Sentinel errors for identity persistence.
var (
	ErrUnknownBackend = errors.New("unknown identity backend")
	ErrCorrupt        = errors.New("identity record is corrupt")
	ErrClosed         = errors.New("identity store is closed")
)
