package cli

import (
	"github.com/spf13/cobra"

	"github.com/cboone/playbook/internal/config"
	"github.com/cboone/playbook/internal/history"
	"github.com/cboone/playbook/internal/report"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded runs",
		Long: `History lists scenario runs recorded by "playbook run", newest first.
Runs are recorded only when results_db (or ` + config.EnvResultsDB + `) is set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := environment(rootOpts, cmd)
			if err != nil {
				return err
			}
			if cfg.ResultsDB == "" {
				return NewExitError(ExitCommandError, "no results database configured (set results_db or "+config.EnvResultsDB+")")
			}

			st, err := history.Open(cfg.ResultsDB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open history", err)
			}
			defer st.Close()

			runs, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "read history", err)
			}
			if err := report.WriteHistory(cmd.OutOrStdout(), runs, rootOpts.reportOptions()); err != nil {
				return WrapExitError(ExitCommandError, "write history", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show (0 for all)")

	return cmd
}
