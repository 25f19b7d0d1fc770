// Package repository stores users and their metric records for the stub
// wellness service.
package repository

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID    int64
	Name  string
	Email string
}

// Record is one stored metric entry.
type Record struct {
	ID            string
	UserID        int64
	Steps         int
	Calories      float64
	SleepHours    float64
	CreatedAt     time.Time
	WellnessScore *float64
}

// Store provides read/write access to users and their metrics.
type Store interface {
	// CreateUser registers a new email. Returns ErrDuplicateEmail when the
	// email is taken.
	CreateUser(ctx context.Context, name, email string) (User, error)

	// AddMetric appends a record for email. Returns ErrNotFound for unknown users.
	AddMetric(ctx context.Context, email string, r Record) (Record, error)

	// Metrics returns the records of email in insertion order.
	Metrics(ctx context.Context, email string) ([]Record, error)

	// DeleteMetrics removes every record of email and returns how many were removed.
	DeleteMetrics(ctx context.Context, email string) (int, error)

	// SetLatestScore attaches a score to the newest record of email and
	// returns that record.
	SetLatestScore(ctx context.Context, email string, score float64) (Record, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) int
}
