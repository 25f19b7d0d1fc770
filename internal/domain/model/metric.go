package model

import (
	"fmt"
	"math"
	"time"
)

// MetricEntry is one day's record as the remote service stores it.
type MetricEntry struct {
	ID             string    // service-assigned, may be empty
	Owner          string    // owner email
	Steps          int       // steps taken
	CaloriesBurned float64   // calories burned that day
	SleepHours     float64   // hours slept
	Timestamp      time.Time // service-assigned, zero when unknown
}

// Validate rejects negative and non-finite values.
func (e MetricEntry) Validate() error {
	switch {
	case e.Steps < 0:
		return fmt.Errorf("%w: steps=%d", ErrInvalidEntry, e.Steps)
	case !finiteNonNegative(e.CaloriesBurned):
		return fmt.Errorf("%w: calories=%v", ErrInvalidEntry, e.CaloriesBurned)
	case !finiteNonNegative(e.SleepHours):
		return fmt.Errorf("%w: sleep_hours=%v", ErrInvalidEntry, e.SleepHours)
	}
	return nil
}

// SameMeasurements compares the user-supplied fields only, ignoring
// service-assigned ones like ID and Timestamp.
func (e MetricEntry) SameMeasurements(other MetricEntry) bool {
	return e.Steps == other.Steps &&
		e.CaloriesBurned == other.CaloriesBurned &&
		e.SleepHours == other.SleepHours
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Draft is a metric entry being edited. Nil means the field was not filled in.
type Draft struct {
	Steps          *int
	CaloriesBurned *float64
	SleepHours     *float64
}

// IsBlank reports whether no field has been filled in.
func (d Draft) IsBlank() bool {
	return d.Steps == nil && d.CaloriesBurned == nil && d.SleepHours == nil
}

// Entry converts a complete draft into a validated entry.
func (d Draft) Entry() (MetricEntry, error) {
	switch {
	case d.Steps == nil:
		return MetricEntry{}, fmt.Errorf("%w: steps", ErrIncompleteDraft)
	case d.CaloriesBurned == nil:
		return MetricEntry{}, fmt.Errorf("%w: calories", ErrIncompleteDraft)
	case d.SleepHours == nil:
		return MetricEntry{}, fmt.Errorf("%w: sleep hours", ErrIncompleteDraft)
	}
	e := MetricEntry{
		Steps:          *d.Steps,
		CaloriesBurned: *d.CaloriesBurned,
		SleepHours:     *d.SleepHours,
	}
	if err := e.Validate(); err != nil {
		return MetricEntry{}, err
	}
	return e, nil
}

// Clone returns a copy that shares no pointers with d.
func (d Draft) Clone() Draft {
	var out Draft
	if d.Steps != nil {
		v := *d.Steps
		out.Steps = &v
	}
	if d.CaloriesBurned != nil {
		v := *d.CaloriesBurned
		out.CaloriesBurned = &v
	}
	if d.SleepHours != nil {
		v := *d.SleepHours
		out.SleepHours = &v
	}
	return out
}

// DraftFrom builds a complete draft from an entry.
func DraftFrom(e MetricEntry) Draft {
	steps, cal, sleep := e.Steps, e.CaloriesBurned, e.SleepHours
	return Draft{Steps: &steps, CaloriesBurned: &cal, SleepHours: &sleep}
}
