package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cboone/playbook/internal/fakeide"
	"github.com/cboone/playbook/script"
)

// ScriptCheck is the validation outcome for one script file.
type ScriptCheck struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool          `json:"valid"`
	Scripts []ScriptCheck `json:"scripts"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check scripts without running them",
		Long: `Validate parses every script and binds its steps, reporting unknown
steps, missing or unexpected arguments and malformed values. Nothing is
opened or driven.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "glob matched against script file names in directories")

	return cmd
}

func runValidate(opts *RootOptions, paths []string, filter string, cmd *cobra.Command) error {
	files, err := script.Files(paths, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "find scripts", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scripts found")
	}

	// Binding only captures the workbench, so a closed one is enough.
	wb := fakeide.New()
	_ = wb.Close()

	res := ValidationResult{Valid: true}
	for _, f := range files {
		check := ScriptCheck{Path: f}
		s, err := script.Load(f)
		if err == nil {
			check.Name = s.Outline.Name
			check.Steps = len(s.Outline.Steps)
			_, err = script.Bind(s.Outline, wb, script.Defaults{})
		}
		if err != nil {
			check.Error = err.Error()
			res.Valid = false
		}
		res.Scripts = append(res.Scripts, check)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return WrapExitError(ExitCommandError, "write result", err)
		}
	} else {
		for _, c := range res.Scripts {
			if c.Error != "" {
				fmt.Fprintf(out, "invalid  %s\n         %s\n", c.Path, c.Error)
				continue
			}
			fmt.Fprintf(out, "ok       %s (%s, %d steps)\n", c.Path, c.Name, c.Steps)
		}
	}

	if !res.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
