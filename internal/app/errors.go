package app

import "errors"

// Sentinel errors for session and navigation operations.
var (
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrNotStarted         = errors.New("app not started")
)

// MsgSubmissionInFlight is shown when a second submission is attempted
// while one is still running for the same identity.
const MsgSubmissionInFlight = "Submission already in progress"
