package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/ide"
	"github.com/cboone/playbook/internal/config"
	"github.com/cboone/playbook/internal/fakeide"
)

const scenariosDir = "../../testdata/scenarios"

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "playbook", cmd.Use)

	for _, name := range []string{"run", "validate", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestInvalidGlobalFlags(t *testing.T) {
	for _, args := range [][]string{
		{"--format", "xml", "validate", scenariosDir},
		{"--log-level", "loud", "validate", scenariosDir},
	} {
		cmd := NewRootCommand()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)

		err := cmd.Execute()
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err), "%v", args)
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag: --x")))

	wrapped := WrapExitError(ExitFailure, "run", errors.New("boom"))
	assert.EqualError(t, wrapped, "run: boom")
	assert.Equal(t, ExitFailure, GetExitCode(errors.Join(errors.New("context"), wrapped)))
}

// fastDemo opens the simulated IDE with short latencies.
func fastDemo(context.Context, config.Config, *slog.Logger) (ide.Workbench, error) {
	return fakeide.New(
		fakeide.WithLatency(5*time.Millisecond),
		fakeide.WithRunDelay(5*time.Millisecond),
		fakeide.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	), nil
}

func execRun(t *testing.T, opts *RunOptions, args ...string) (string, error) {
	t.Helper()
	if opts.RootOptions == nil {
		opts.RootOptions = &RootOptions{Format: "text", NoColor: true}
	}
	if opts.Open == nil {
		opts.Open = fastDemo
	}
	return execute(t, newRunCommand(opts), args...)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	// A nil slice makes cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRunScenarios(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	t.Setenv(config.EnvResultsDB, db)

	out, err := execRun(t, &RunOptions{}, scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS  language server init")
	assert.Contains(t, out, "PASS  find definition")
	assert.Contains(t, out, "4 scenarios: 4 passed, 0 failed, 0 skipped")

	opts := &RootOptions{Format: "text", NoColor: true}
	out, err = execute(t, NewHistoryCommand(opts), "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "find definition")
	assert.Contains(t, out, "autocomplete")
	assert.NotContains(t, out, "error markers")
}

func TestRunFailingScenario(t *testing.T) {
	out, err := execRun(t, &RunOptions{}, "--filter", "02-*", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.EqualError(t, err, "1 of 1 scenarios did not pass")
	assert.Contains(t, out, "FAIL  error markers")
	assert.Contains(t, out, `step 0 (select_tab): playbook: action "select_tab": fakeide: editor tab "main.py" not found`)
}

func TestRunJSON(t *testing.T) {
	out, err := execRun(t, &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
	}, "--filter", "01-*", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, `"ok": true`)
	assert.Contains(t, out, `"scenario": "language server init"`)
	assert.NotContains(t, out, `"scenario": "error markers"`)
}

func TestRunCommandErrors(t *testing.T) {
	t.Run("no scripts", func(t *testing.T) {
		_, err := execRun(t, &RunOptions{}, "--filter", "zzz*", scenariosDir)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.ErrorContains(t, err, "no scripts found")
	})
	t.Run("missing path", func(t *testing.T) {
		_, err := execRun(t, &RunOptions{}, "does-not-exist")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("open fails", func(t *testing.T) {
		_, err := execRun(t, &RunOptions{
			Open: func(context.Context, config.Config, *slog.Logger) (ide.Workbench, error) {
				return nil, errors.New("connection refused")
			},
		}, scenariosDir)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.True(t, playbook.IsSessionError(err))
		assert.ErrorContains(t, err, "connection refused")
	})
	t.Run("no args", func(t *testing.T) {
		_, err := execRun(t, &RunOptions{})
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidate(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	out, err := execute(t, NewValidateCommand(opts), scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok       ../../testdata/scenarios/01-ls-init.yaml (language server init,")
	assert.Contains(t, out, "find definition")
}

func TestValidateReportsEveryBadScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.yaml", "name: a\nsteps:\n  - name: teleport\n")
	writeScript(t, dir, "b.yaml", "name: b\nsteps: [[[\n")
	writeScript(t, dir, "c.yaml", "name: c\nsteps:\n  - name: delete_all\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `unknown step "teleport"`)
	assert.Contains(t, out, "invalid  "+filepath.Join(dir, "b.yaml"))
	assert.Contains(t, out, "ok       "+filepath.Join(dir, "c.yaml")+" (c, 1 steps)")
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.yaml", "name: a\nsteps:\n  - name: go_to\n    args: {line: \"0\"}\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, `"valid": false`)
	assert.Contains(t, out, "must be at least 1")
}

func TestHistoryNeedsDatabase(t *testing.T) {
	t.Setenv(config.EnvResultsDB, "")
	_, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorContains(t, err, "no results database configured")
}

func TestOpenWorkbenchDemo(t *testing.T) {
	wb, err := openWorkbench(t.Context(), config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	_, err = wb.Editor().OpenTabs(t.Context())
	assert.True(t, playbook.IsSessionError(err))
}
