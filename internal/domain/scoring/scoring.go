// Package scoring predicts a wellness score from a day's metrics.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Default predictor configuration constants.
const (
	defaultStepsTarget    = 10_000
	defaultCaloriesTarget = 500
	defaultSleepTarget    = 8
	defaultRandomSeed     = 42
	maxScoreValue         = 100

	stepsWeight    = 40
	caloriesWeight = 30
	sleepWeight    = 30
)

// ErrUnknownModel is returned for model ids the predictor does not serve.
var ErrUnknownModel = errors.New("unknown model")

// Option applies a configuration option to the InMemoryPredictor.
type Option func(*InMemoryPredictor)

// WithLatencyRange sets the simulated latency range. Disabled by default.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(p *InMemoryPredictor) {
		if minLatency > 0 && maxLatency > minLatency {
			p.minLatency = minLatency
			p.maxLatency = maxLatency
		}
	}
}

// WithTargets sets the daily values that earn a full component score.
func WithTargets(steps, calories, sleepHours float64) Option {
	return func(p *InMemoryPredictor) {
		if steps > 0 {
			p.stepsTarget = steps
		}
		if calories > 0 {
			p.caloriesTarget = calories
		}
		if sleepHours > 0 {
			p.sleepTarget = sleepHours
		}
	}
}

// WithModels restricts the model ids the predictor accepts.
func WithModels(ids ...string) Option {
	return func(p *InMemoryPredictor) {
		if len(ids) == 0 {
			return
		}
		p.models = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			p.models[id] = struct{}{}
		}
	}
}

// Input holds the features the model scores.
type Input struct {
	Steps      int
	Calories   float64
	SleepHours float64
}

// Predictor computes a wellness score for an input.
type Predictor interface {
	// Predict scores in with model, honoring ctx for cancellation.
	Predict(ctx context.Context, model string, in Input) (float64, error)
}

// InMemoryPredictor implements Predictor with a weighted target model.
type InMemoryPredictor struct {
	stepsTarget    float64
	caloriesTarget float64
	sleepTarget    float64
	models         map[string]struct{}
	// Simulated latency range
	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand
}

// NewInMemoryPredictor creates a predictor serving model "1" by default.
func NewInMemoryPredictor(opts ...Option) *InMemoryPredictor {
	p := &InMemoryPredictor{
		stepsTarget:    defaultStepsTarget,
		caloriesTarget: defaultCaloriesTarget,
		sleepTarget:    defaultSleepTarget,
		models:         map[string]struct{}{"1": {}},
		rng:            rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible latency
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict returns a score in [0, 100]. The same input always scores the same.
func (p *InMemoryPredictor) Predict(ctx context.Context, model string, in Input) (float64, error) {
	if _, ok := p.models[model]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	if p.maxLatency > 0 {
		latency := p.minLatency + time.Duration(p.rng.Int63n(int64(p.maxLatency-p.minLatency)))
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	steps := ratio(float64(in.Steps), p.stepsTarget) * stepsWeight
	calories := ratio(in.Calories, p.caloriesTarget) * caloriesWeight
	// Sleep is scored by distance from the target in either direction.
	sleep := math.Max(0, 1-math.Abs(in.SleepHours-p.sleepTarget)/p.sleepTarget) * sleepWeight

	score := steps + calories + sleep
	return math.Max(0, math.Min(maxScoreValue, score)), nil
}

func ratio(v, target float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(1, v/target)
}
