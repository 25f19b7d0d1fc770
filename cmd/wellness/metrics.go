package main

import (
	"context"
	"fmt"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/app"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/spf13/cobra"
)

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	var entry model.MetricEntry
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit today's metrics and show the resulting score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Session().SubmitEntry(ctx, entry); err != nil {
					return err
				}
				st := a.Session().Snapshot()
				out := cmd.OutOrStdout()
				printMessage(out, st)
				printScore(out, st)
				if st.HistoryLoaded {
					printHistory(out, st.History)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&entry.Steps, "steps", 0, "Steps taken")
	f.Float64Var(&entry.CaloriesBurned, "calories", 0, "Calories burned")
	f.Float64Var(&entry.SleepHours, "sleep", 0, "Hours slept")
	for _, name := range []string{"steps", "calories", "sleep"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List submitted metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, ok := a.Identity().Current(ctx); !ok {
					fmt.Fprintln(cmd.OutOrStdout(), remote.MsgRegisterFirst)
					return nil
				}
				ok := a.Session().RefreshHistory(ctx)
				st := a.Session().Snapshot()
				if !ok {
					printMessage(cmd.OutOrStdout(), st)
					return nil
				}
				printHistory(cmd.OutOrStdout(), st.History)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete every submitted metric",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Session().DeleteHistory(ctx)
				printMessage(cmd.OutOrStdout(), a.Session().Snapshot())
				return nil
			})
		},
	}
}
