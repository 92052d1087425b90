// Package cli implements the playbook command.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cboone/playbook/internal/config"
	"github.com/cboone/playbook/internal/logging"
	"github.com/cboone/playbook/internal/report"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
	LogLevel   string
	Verbose    bool
	NoColor    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{report.FormatText, report.FormatJSON}

// NewRootCommand creates the root command for the playbook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "playbook",
		Short: "Run scripted UI scenarios against an IDE",
		Long: `Playbook drives an IDE workbench through scripted scenarios: it types,
presses keys and clicks menus, then waits for the screen to show what
each step expects.

Scripts are YAML files of actions and assertions. They run in file name
order as one suite against a single workbench, either the built-in demo
IDE or a browser pointed at a web IDE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.LogLevel != "" {
				if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
					return WrapExitError(ExitCommandError, "invalid --log-level", err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", report.FormatText, "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// environment loads the config and builds the logger for a command.
func environment(opts *RootOptions, cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level)
	if err != nil {
		return cfg, nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	return cfg, logger, nil
}

func (o *RootOptions) reportOptions() report.Options {
	return report.Options{
		Format:  o.Format,
		Color:   !o.NoColor && os.Getenv("NO_COLOR") == "",
		Verbose: o.Verbose,
	}
}
