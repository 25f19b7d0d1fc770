package model

import "time"

// Axis names one independent dimension of session state.
type Axis string

// Session axes plus the navigation screen.
const (
	AxisHistory    Axis = "history"
	AxisSubmission Axis = "submission"
	AxisScore      Axis = "score"
	AxisScreen     Axis = "screen"
	AxisMessage    Axis = "message"
)

// HistoryState is the history axis.
type HistoryState string

const (
	HistoryEmpty  HistoryState = "empty"
	HistoryLoaded HistoryState = "loaded"
)

// SubmissionState is the submission axis.
type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSubmitted  SubmissionState = "submitted"
	SubmissionFailed     SubmissionState = "submit_failed"
)

// ScoreState is the score axis.
type ScoreState string

const (
	ScoreAbsent      ScoreState = "absent"
	ScorePending     ScoreState = "pending"
	ScoreScored      ScoreState = "scored"
	ScoreUnavailable ScoreState = "unavailable"
)

// Screen is the navigation state.
type Screen string

const (
	ScreenRegistration Screen = "registration"
	ScreenMetrics      Screen = "metrics"
)

// Transition describes one state change a presentation layer may react to.
// For AxisMessage, From and To are empty and Message holds the new text.
type Transition struct {
	Axis    Axis
	From    string
	To      string
	Message string
	Email   string
	At      time.Time
}
