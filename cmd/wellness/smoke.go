package main

import (
	"fmt"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/smoke"
	"github.com/okian/wellness/pkg/logger"
	"github.com/spf13/cobra"
)

func newSmokeCmd(opts *rootOptions) *cobra.Command {
	var cfg smoke.Config
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run register, submit, verify, score and delete against the service",
		Long:  "smoke uses a throwaway account unless --email is given and never touches the stored identity.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := remote.New(opts.cfg.BaseURL,
				remote.WithTimeout(opts.cfg.RequestTimeout()),
				remote.WithModelID(opts.cfg.ModelID),
				remote.WithRateLimit(opts.cfg.RateLimitRPS, 1),
				remote.WithLogger(logger.Get().Named("remote")),
			)
			if err != nil {
				return err
			}
			stats, err := smoke.Run(cmd.Context(), c, cfg, logger.Get().Named("smoke"))
			out := cmd.OutOrStdout()
			for _, st := range stats.StepDurations {
				fmt.Fprintf(out, "%-9s %s\n", st.Step, st.Duration)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "OK: %d entries verified for %s, score %.1f\n", stats.Verified, stats.Email, stats.Score)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Email, "email", "", "Account email (default: generated)")
	f.StringVar(&cfg.Name, "name", "", "Display name")
	f.IntVar(&cfg.Entries, "entries", 3, "Number of entries to submit")
	f.Int64Var(&cfg.Seed, "seed", 1, "Seed for generated metrics")
	f.BoolVar(&cfg.Keep, "keep", false, "Keep the submitted history")
	f.StringVar(&cfg.OutputFile, "output", "", "Write a YAML report to this path")
	return cmd
}
