package main

import (
	"context"
	"fmt"

	"github.com/okian/wellness/internal/app"
	"github.com/okian/wellness/internal/config"
	"github.com/okian/wellness/pkg/logger"
	"github.com/spf13/cobra"
)

// rootOptions holds persistent flags shared by every command.
type rootOptions struct {
	configPath      string
	baseURL         string
	identityBackend string
	identityPath    string
	logLevel        string
	logFormat       string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "wellness",
		Short:         "wellness records daily metrics and shows your wellness score",
		Long:          "wellness registers an account with a wellness service, submits daily steps, calories and sleep, and shows the score the service predicts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $WELLNESS_CONFIG)")
	f.StringVar(&opts.baseURL, "base-url", "", "Wellness service base URL")
	f.StringVar(&opts.identityBackend, "identity-backend", "", "Identity store: file, sqlite or memory")
	f.StringVar(&opts.identityPath, "identity-path", "", "Identity file or database path")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(
		newRegisterCmd(opts),
		newWhoamiCmd(opts),
		newLogoutCmd(opts),
		newSubmitCmd(opts),
		newHistoryCmd(opts),
		newDeleteCmd(opts),
		newShellCmd(opts),
		newSmokeCmd(opts),
	)
	return cmd
}

// load reads configuration, applies flag overrides and initializes logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	ctx := cmd.Context()
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(ctx, o.configPath)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("identity-backend") {
		cfg.IdentityBackend = o.identityBackend
	}
	if flags.Changed("identity-path") {
		cfg.IdentityPath = o.identityPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitWithOptions(logger.Options{
		Output: cmd.ErrOrStderr(),
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	o.cfg = cfg
	return nil
}

// withApp runs fn against a started App and stops it afterwards.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.New(o.cfg, app.WithLogger(logger.Get()))
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()
	return fn(ctx, a)
}
