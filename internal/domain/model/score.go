package model

import "fmt"

// Bounds of the wellness score scale.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// WellnessScore is the predictor's output for the latest submission.
// It is never persisted by the client.
type WellnessScore struct {
	Value float64
}

// InRange reports whether the value lies on the documented 0-100 scale.
func (s WellnessScore) InRange() bool {
	return s.Value >= ScoreMin && s.Value <= ScoreMax
}

// String formats the score the way it is displayed: one decimal place.
func (s WellnessScore) String() string {
	return fmt.Sprintf("%.1f", s.Value)
}
