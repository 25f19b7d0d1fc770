package smoke

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/okian/wellness/internal/domain/model"
)

// Ranges for generated metrics.
const (
	minSteps      = 2_000
	stepsRange    = 14_000
	minCalories   = 150.0
	caloriesRange = 600.0
	minSleep      = 4.0
	sleepRange    = 6.0
)

// generateEntries returns n plausible days, reproducible for a given seed.
func generateEntries(n int, seed int64) []Entry {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible test data
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{
			Steps:      minSteps + rng.Intn(stepsRange),
			Calories:   round(minCalories+rng.Float64()*caloriesRange, 1),
			SleepHours: round(minSleep+rng.Float64()*sleepRange, 1),
		}
	}
	return out
}

// generateEmail returns a unique throwaway address.
func generateEmail() string {
	return "smoke-" + uuid.NewString() + "@example.com"
}

func (e Entry) toModel() model.MetricEntry {
	return model.MetricEntry{Steps: e.Steps, CaloriesBurned: e.Calories, SleepHours: e.SleepHours}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
