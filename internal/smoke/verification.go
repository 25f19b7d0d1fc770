package smoke

import (
	"fmt"

	"github.com/okian/wellness/internal/domain/model"
)

// verifyHistory checks that history holds exactly the submitted entries in
// submission order and returns how many matched.
func verifyHistory(submitted []Entry, history []model.MetricEntry) (int, error) {
	if len(history) != len(submitted) {
		return 0, fmt.Errorf("%w: want %d entries, got %d", ErrMismatch, len(submitted), len(history))
	}
	for i, want := range submitted {
		if !history[i].SameMeasurements(want.toModel()) {
			return i, fmt.Errorf("%w: entry %d: want %+v, got steps=%d calories=%v sleep=%v",
				ErrMismatch, i, want, history[i].Steps, history[i].CaloriesBurned, history[i].SleepHours)
		}
	}
	return len(submitted), nil
}
