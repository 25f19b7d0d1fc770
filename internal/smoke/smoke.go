// Package smoke runs an end-to-end check of a wellness service: register,
// submit, read back, score and delete.
package smoke

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
)

const defaultEntries = 3

// Client is the remote surface a smoke run exercises.
type Client interface {
	CreateIdentity(ctx context.Context, name, email string) remote.MessageResult
	SubmitMetrics(ctx context.Context, email string, entry model.MetricEntry) remote.MessageResult
	FetchHistory(ctx context.Context, email string) remote.HistoryResult
	DeleteHistory(ctx context.Context, email string) remote.DeleteResult
	RequestScore(ctx context.Context, email string) remote.ScoreResult
}

// Run executes the complete smoke sequence. It stops at the first failing
// step and returns the stats gathered so far.
func Run(ctx context.Context, c Client, cfg Config, log logger.Logger) (*Stats, error) {
	if cfg.Entries <= 0 {
		cfg.Entries = defaultEntries
	}
	if strings.TrimSpace(cfg.Email) == "" {
		cfg.Email = generateEmail()
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "Smoke Test"
	}

	stats := &Stats{Email: cfg.Email, StartTime: time.Now()}
	log.Info(ctx, "starting wellness smoke run",
		logger.String("email", cfg.Email),
		logger.Int("entries", cfg.Entries),
		logger.Bool("keep", cfg.Keep))

	err := run(ctx, c, cfg, stats, log)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	if cfg.OutputFile != "" {
		if rerr := saveReport(cfg.OutputFile, stats); rerr != nil {
			log.Warn(ctx, "failed to save report", logger.Error(rerr))
		}
	}
	if err != nil {
		return stats, err
	}

	log.Info(ctx, "smoke run completed",
		logger.Int("verified", stats.Verified),
		logger.Float64("score", stats.Score),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

func run(ctx context.Context, c Client, cfg Config, stats *Stats, log logger.Logger) error {
	if err := step(ctx, stats, log, "register", func() error {
		return check(c.CreateIdentity(ctx, cfg.Name, cfg.Email))
	}); err != nil {
		return err
	}

	entries := generateEntries(cfg.Entries, cfg.Seed)
	stats.GeneratedInput = entries
	if err := step(ctx, stats, log, "submit", func() error {
		for i, e := range entries {
			if err := check(c.SubmitMetrics(ctx, cfg.Email, e.toModel())); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			stats.Submitted++
		}
		return nil
	}); err != nil {
		return err
	}

	if err := step(ctx, stats, log, "verify", func() error {
		res := c.FetchHistory(ctx, cfg.Email)
		if err := check(res); err != nil {
			return err
		}
		n, err := verifyHistory(entries, res.Value)
		stats.Verified = n
		return err
	}); err != nil {
		return err
	}

	if err := step(ctx, stats, log, "score", func() error {
		res := c.RequestScore(ctx, cfg.Email)
		if err := check(res); err != nil {
			return err
		}
		stats.Score = res.Value.Value
		stats.ScoreInRange = res.Value.InRange()
		if !stats.ScoreInRange {
			log.Warn(ctx, "score outside the expected range", logger.Float64("score", stats.Score))
		}
		return nil
	}); err != nil {
		return err
	}

	if cfg.Keep {
		return nil
	}
	return step(ctx, stats, log, "delete", func() error {
		if err := check(c.DeleteHistory(ctx, cfg.Email)); err != nil {
			return err
		}
		res := c.FetchHistory(ctx, cfg.Email)
		if err := check(res); err != nil {
			return err
		}
		if len(res.Value) != 0 {
			return fmt.Errorf("%w: %d entries left after delete", ErrMismatch, len(res.Value))
		}
		stats.Deleted = true
		return nil
	})
}

func step(ctx context.Context, stats *Stats, log logger.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	stats.StepDurations = append(stats.StepDurations, StepTiming{Step: name, Duration: d})
	if err != nil {
		log.Error(ctx, "smoke step failed", logger.String("step", name), logger.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrStep, name, err)
	}
	log.Debug(ctx, "smoke step passed", logger.String("step", name), logger.Duration("duration", d))
	return nil
}

func check[T any](r remote.Result[T]) error {
	if r.OK() {
		return nil
	}
	if r.Detail != "" {
		return fmt.Errorf("%s: %s: %w", r.Message, r.Detail, r.Err)
	}
	return fmt.Errorf("%s: %w", r.Message, r.Err)
}
