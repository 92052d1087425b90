package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/ide"
	"github.com/cboone/playbook/internal/config"
	"github.com/cboone/playbook/internal/fakeide"
	"github.com/cboone/playbook/internal/history"
	"github.com/cboone/playbook/internal/report"
	"github.com/cboone/playbook/script"
)

// OpenFunc opens the workbench a suite runs against.
type OpenFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger) (ide.Workbench, error)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter string

	// Open overrides how the workbench is opened (for testing). If nil,
	// the configured target is used.
	Open OpenFunc
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <path>...",
		Short: "Run scripts as one suite",
		Long: `Run loads the scripts at the given paths (directories contribute their
.yaml and .yml files in name order), opens the configured workbench and
runs the scripts against it one after another.

Exit status is 0 when every scenario passed, 1 when any failed or was
skipped, and 2 when the run could not start.

Example:
  playbook run testdata/scenarios
  playbook run --filter '*markers*' -v testdata/scenarios
  PLAYBOOK_TARGET=chrome PLAYBOOK_URL=http://localhost:8080 playbook run scripts/`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "glob matched against script file names in directories")

	return cmd
}

func runSuite(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	cfg, logger, err := environment(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	scripts, err := script.LoadPaths(paths, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scripts", err)
	}
	if len(scripts) == 0 {
		return NewExitError(ExitCommandError, "no scripts found")
	}
	logger.Info("loaded scripts", "count", len(scripts), "target", cfg.Target)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open := opts.Open
	if open == nil {
		open = openWorkbench
	}
	d := playbook.NewDriver(
		playbook.WithTimeout(cfg.Timeout),
		playbook.WithPollInterval(cfg.Poll),
		playbook.WithLogger(logger),
	)
	suite, err := playbook.RunSuite(ctx, d,
		func(ctx context.Context) (ide.Workbench, error) { return open(ctx, cfg, logger) },
		func(wb ide.Workbench) ([]*playbook.Scenario, error) { return bindAll(scripts, wb) },
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "run", err)
	}

	if err := report.Write(cmd.OutOrStdout(), suite, opts.reportOptions()); err != nil {
		return WrapExitError(ExitCommandError, "write report", err)
	}

	if cfg.ResultsDB != "" {
		if err := recordHistory(ctx, cfg.ResultsDB, suite); err != nil {
			return WrapExitError(ExitCommandError, "record history", err)
		}
		logger.Debug("recorded runs", "db", cfg.ResultsDB, "count", len(suite.Results))
	}

	if !suite.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios did not pass", suite.Failed+suite.Skipped, len(suite.Results)))
	}
	return nil
}

func bindAll(scripts []script.Script, wb ide.Workbench) ([]*playbook.Scenario, error) {
	scenarios := make([]*playbook.Scenario, 0, len(scripts))
	for _, s := range scripts {
		sc, err := script.Bind(s.Outline, wb, script.Defaults{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func recordHistory(ctx context.Context, path string, suite playbook.SuiteResult) error {
	st, err := history.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Record(context.WithoutCancel(ctx), suite)
}

// openWorkbench opens the target named by cfg.
func openWorkbench(ctx context.Context, cfg config.Config, logger *slog.Logger) (ide.Workbench, error) {
	switch cfg.Target {
	case config.TargetChrome:
		opts := []ide.ChromeOption{
			ide.WithHeadless(cfg.Headless),
			ide.WithSelectors(cfg.Selectors),
			ide.WithBrowserLogger(logger),
		}
		if cfg.ChromePath != "" {
			opts = append(opts, ide.WithExecPath(cfg.ChromePath))
		}
		c, err := ide.OpenChrome(ctx, cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.TargetDemo:
		return fakeide.New(fakeide.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown target %q", cfg.Target)
	}
}
