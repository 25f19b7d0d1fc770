package queue

import "errors"

// Sentinel errors for the transition queue.
var (
	ErrClosed = errors.New("queue closed")
)
