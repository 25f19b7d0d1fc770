package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	scoring "github.com/okian/wellness/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryPredictor_Predict(t *testing.T) {
	ctx := context.Background()

	Convey("Given a default predictor", t, func() {
		p := scoring.NewInMemoryPredictor()

		Convey("When every target is met", func() {
			score, err := p.Predict(ctx, "1", scoring.Input{Steps: 10000, Calories: 500, SleepHours: 8})

			Convey("Then the score is the maximum", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 100.0)
			})
		})

		Convey("When sleep is one hour short", func() {
			score, err := p.Predict(ctx, "1", scoring.Input{Steps: 10000, Calories: 500, SleepHours: 7})

			Convey("Then only the sleep component drops", func() {
				So(err, ShouldBeNil)
				So(score, ShouldAlmostEqual, 96.25, 1e-9)
			})
		})

		Convey("When values exceed the targets", func() {
			score, err := p.Predict(ctx, "1", scoring.Input{Steps: 50000, Calories: 5000, SleepHours: 8})

			Convey("Then the score is clamped", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 100.0)
			})
		})

		Convey("When the day is empty", func() {
			score, err := p.Predict(ctx, "1", scoring.Input{})

			Convey("Then the score is zero", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 0.0)
			})
		})

		Convey("When the same input is scored twice", func() {
			in := scoring.Input{Steps: 4321, Calories: 210, SleepHours: 6.5}
			a, _ := p.Predict(ctx, "1", in)
			b, _ := p.Predict(ctx, "1", in)

			Convey("Then both scores match", func() {
				So(a, ShouldEqual, b)
				So(a, ShouldBeBetweenOrEqual, 0, 100)
			})
		})

		Convey("When an unknown model is requested", func() {
			_, err := p.Predict(ctx, "7", scoring.Input{Steps: 1})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrUnknownModel), ShouldBeTrue)
			})
		})
	})

	Convey("Given a predictor with custom targets and models", t, func() {
		p := scoring.NewInMemoryPredictor(
			scoring.WithTargets(5000, 250, 7),
			scoring.WithModels("rf", "lin"),
		)

		Convey("Then both models score against the new targets", func() {
			a, err := p.Predict(ctx, "rf", scoring.Input{Steps: 5000, Calories: 250, SleepHours: 7})
			So(err, ShouldBeNil)
			So(a, ShouldEqual, 100.0)
			_, err = p.Predict(ctx, "1", scoring.Input{})
			So(errors.Is(err, scoring.ErrUnknownModel), ShouldBeTrue)
		})
	})

	Convey("Given a predictor with simulated latency", t, func() {
		p := scoring.NewInMemoryPredictor(scoring.WithLatencyRange(50*time.Millisecond, 60*time.Millisecond))

		Convey("When the context is cancelled first", func() {
			cctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
			defer cancel()
			_, err := p.Predict(cctx, "1", scoring.Input{Steps: 1})

			Convey("Then the prediction is abandoned", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})

		Convey("When waiting for the result", func() {
			start := time.Now()
			_, err := p.Predict(ctx, "1", scoring.Input{Steps: 1})

			Convey("Then at least the minimum latency elapses", func() {
				So(err, ShouldBeNil)
				So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
			})
		})
	})
}
