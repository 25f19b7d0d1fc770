package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/wellness/internal/app"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  register <email> [name...]   create an account and store it
  whoami                       show the stored identity
  logout                       forget the stored identity
  steps <n>                    set today's steps
  calories <n>                 set today's calories burned
  sleep <hours>                set today's hours of sleep
  draft                        show the values entered so far
  submit                       submit the draft, then score and refresh
  history                      reload and list submitted metrics
  delete                       delete every submitted metric
  nav <registration|metrics>   switch screens
  status                       show screen, states and score
  help                         show this help
  quit                         leave the shell`

var errQuit = errors.New("quit")

func newShellCmd(opts *rootOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := &syncWriter{w: cmd.OutOrStdout()}
				sh := &shell{app: a, out: out, quiet: quiet, log: logger.Get().Named("shell")}
				return sh.run(ctx, cmd.InOrStdin())
			})
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print state transitions")
	return cmd
}

// shell is a line-oriented front end over an App.
type shell struct {
	app   *app.App
	out   io.Writer
	quiet bool
	log   logger.Logger
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !s.quiet {
		unsubscribe := s.app.Subscribe(s.printTransition)
		defer unsubscribe()
	}

	go func() {
		if err := s.app.WatchIdentity(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn(ctx, "identity watch stopped", logger.Error(err))
		}
	}()
	if addr := s.app.Config().MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				s.log.Warn(ctx, "metrics endpoint stopped", logger.String("addr", addr), logger.Error(err))
			}
		}()
	}

	if id, ok := s.app.Identity().Current(ctx); ok {
		fmt.Fprintf(s.out, "Welcome back, %s. Type 'nav metrics' to continue.\n", id)
	} else {
		fmt.Fprintln(s.out, "Type 'help' for commands.")
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(s.out, "wellness(%s)> ", s.app.Navigation().Screen())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.exec(ctx, strings.Fields(line)); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, args []string) error {
	sess := s.app.Session()
	switch cmd := strings.ToLower(args[0]); cmd {
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "quit", "exit":
		return errQuit
	case "register":
		if len(args) < 2 {
			return errors.New("usage: register <email> [name...]")
		}
		res, err := s.app.Navigation().Register(ctx, strings.Join(args[2:], " "), args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, res.Message)
	case "whoami":
		if id, ok := s.app.Identity().Current(ctx); ok {
			fmt.Fprintln(s.out, id)
		} else {
			fmt.Fprintln(s.out, "Not registered.")
		}
	case "logout":
		return s.app.Identity().Clear(ctx)
	case "steps":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		sess.SetSteps(v)
	case "calories", "sleep":
		v, err := floatArg(args)
		if err != nil {
			return err
		}
		if cmd == "calories" {
			sess.SetCalories(v)
		} else {
			sess.SetSleepHours(v)
		}
	case "draft":
		printDraft(s.out, sess.Snapshot().Draft)
	case "submit":
		if err := sess.Submit(ctx); err != nil {
			return err
		}
		st := sess.Snapshot()
		printMessage(s.out, st)
		printScore(s.out, st)
	case "history":
		if sess.RefreshHistory(ctx) {
			printHistory(s.out, sess.Snapshot().History)
		} else {
			printMessage(s.out, sess.Snapshot())
		}
	case "delete":
		sess.DeleteHistory(ctx)
		printMessage(s.out, sess.Snapshot())
	case "nav":
		if len(args) != 2 {
			return errors.New("usage: nav <registration|metrics>")
		}
		to := model.Screen(strings.ToLower(args[1]))
		if to != model.ScreenRegistration && to != model.ScreenMetrics {
			return fmt.Errorf("unknown screen %q", args[1])
		}
		s.app.Navigation().Navigate(ctx, to)
	case "status":
		s.printStatus()
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
	return nil
}

func (s *shell) printStatus() {
	st := s.app.Session().Snapshot()
	fmt.Fprintf(s.out, "screen=%s history=%s submission=%s score=%s entries=%d\n",
		s.app.Navigation().Screen(), st.HistoryState, st.SubmissionState, st.ScoreState, len(st.History))
	printScore(s.out, st)
	printMessage(s.out, st)
}

func (s *shell) printTransition(_ context.Context, t model.Transition) { //nolint:gocritic // hugeParam
	if t.Axis == model.AxisMessage {
		return
	}
	fmt.Fprintf(s.out, "  [%s] %s -> %s\n", t.Axis, t.From, t.To)
}

func intArg(args []string) (int, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("usage: %s <n>", args[0])
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", args[0], args[1])
	}
	return v, nil
}

func floatArg(args []string) (float64, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("usage: %s <n>", args[0])
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", args[0], args[1])
	}
	return v, nil
}
