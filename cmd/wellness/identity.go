package main

import (
	"context"
	"fmt"

	"github.com/okian/wellness/internal/app"
	"github.com/spf13/cobra"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and remember it on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Navigation().Register(ctx, name, email)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				if res.OK() {
					id, _ := a.Identity().Current(ctx)
					fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, ok := a.Identity().Current(ctx)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Not registered.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored identity on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Identity().Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Identity cleared.")
				return nil
			})
		},
	}
}
