package remote

import (
	"fmt"

	"github.com/okian/wellness/internal/domain/model"
)

// User-facing messages.
const (
	MsgRegisterFirst    = "Please register first"
	MsgAccountCreated   = "Account created successfully"
	MsgCreateFailed     = "Error creating account. Please try again."
	MsgSubmitted        = "Metrics submitted successfully"
	MsgSubmitFailed     = "Error submitting metrics. Please try again."
	MsgFetchFailed      = "Error fetching metrics. Please try again."
	MsgDeleted          = "Metrics deleted successfully"
	MsgDeleteFailed     = "Error deleting metrics. Please try again."
	MsgScoreUnavailable = "Unable to calculate wellness score"
)

// Result is the outcome of one remote operation. It never carries a panic
// or an untyped error: Kind is KindNone on success and Err wraps the
// matching sentinel otherwise.
type Result[T any] struct {
	Value   T
	Message string // user-facing text
	Detail  string // service-provided explanation, if any
	Kind    Kind
	Status  int // HTTP status, 0 when no response was received
	Err     error
}

// OK reports success.
func (r Result[T]) OK() bool {
	return r.Kind == KindNone
}

// Typed results per operation.
type (
	MessageResult = Result[string]
	HistoryResult = Result[[]model.MetricEntry]
	DeleteResult  = Result[bool]
	ScoreResult   = Result[model.WellnessScore]
)

func success[T any](v T, msg string, status int) Result[T] {
	return Result[T]{Value: v, Message: msg, Status: status}
}

func failure[T any](op string, kind Kind, msg string, status int, cause error) Result[T] {
	err := fmt.Errorf("%s: %w", op, kind.sentinel())
	if cause != nil {
		err = fmt.Errorf("%s: %w: %w", op, kind.sentinel(), cause)
	}
	return Result[T]{Message: msg, Kind: kind, Status: status, Err: err}
}

func guardFailure[T any](op string) Result[T] {
	return failure[T](op, KindGuardViolation, MsgRegisterFirst, 0, nil)
}
