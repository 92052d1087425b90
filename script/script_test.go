package script_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/internal/fakeide"
	"github.com/cboone/playbook/script"
)

const scenariosDir = "../testdata/scenarios"

func TestLoadDir(t *testing.T) {
	scripts, err := script.LoadDir(scenariosDir, "")
	require.NoError(t, err)

	var names []string
	for _, s := range scripts {
		names = append(names, s.Outline.Name)
	}
	assert.Equal(t, []string{"language server init", "error markers", "autocomplete", "find definition"}, names)
	assert.Equal(t, filepath.Join(scenariosDir, "01-ls-init.yaml"), scripts[0].Path)
}

func TestLoadDirFilter(t *testing.T) {
	scripts, err := script.LoadDir(scenariosDir, "*find*")
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "find definition", scripts[0].Outline.Name)

	_, err = script.LoadDir(scenariosDir, "[")
	assert.ErrorContains(t, err, "filter")
}

func TestLoadPaths(t *testing.T) {
	scripts, err := script.LoadPaths([]string{
		filepath.Join(scenariosDir, "02-error-markers.yaml"),
		scenariosDir,
	}, "0[34]*")
	require.NoError(t, err)
	require.Len(t, scripts, 3)
	assert.Equal(t, "error markers", scripts[0].Outline.Name)
	assert.Equal(t, "find definition", scripts[2].Outline.Name)

	_, err = script.LoadPaths([]string{"does-not-exist.yaml"}, "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("steps: [[["), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	files, err := script.Files([]string{dir, filepath.Join(scenariosDir, "01-ls-init.yaml")}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "broken.yaml"),
		filepath.Join(scenariosDir, "01-ls-init.yaml"),
	}, files)

	_, err = script.LoadPaths([]string{dir}, "")
	assert.ErrorContains(t, err, "broken.yaml")
}

func TestLoadNamesUnnamedScripts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - kind: action\n    name: delete_all\n"), 0o644))

	s, err := script.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Outline.Name)
	assert.Equal(t, playbook.KindAction, s.Outline.Steps[0].Kind)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "unknown field", yaml: "name: x\nstepz: []\n", wantErr: "field stepz not found"},
		{name: "unknown step kind", yaml: "name: x\nsteps:\n  - kind: poke\n    name: type\n", wantErr: "unknown step kind"},
		{name: "empty", yaml: "", wantErr: "empty script"},
		{name: "no steps", yaml: "name: x\n", wantErr: "no steps"},
		{name: "bad duration", yaml: "name: x\nsteps:\n  - kind: assertion\n    name: tab\n    timeout: soon\n", wantErr: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseEmptyStepList(t *testing.T) {
	o, err := script.Parse([]byte("name: x\nsteps: []\n"))
	require.NoError(t, err)
	assert.Empty(t, o.Steps)
}

func TestParseDurations(t *testing.T) {
	o, err := script.Parse([]byte("name: x\nsteps:\n  - kind: assertion\n    name: tab\n    args: {name: a.py}\n    timeout: 1500ms\n    poll: 20ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, o.Steps[0].Timeout)
	assert.Equal(t, 20*time.Millisecond, o.Steps[0].Poll)
	assert.Equal(t, map[string]string{"name": "a.py"}, o.Steps[0].Args)
}

func outline(steps ...playbook.StepOutline) playbook.Outline {
	return playbook.Outline{Name: "bind", Steps: steps}
}

func act(name string, args map[string]string) playbook.StepOutline {
	return playbook.StepOutline{Kind: playbook.KindAction, Name: name, Args: args}
}

func check(name string, args map[string]string) playbook.StepOutline {
	return playbook.StepOutline{Kind: playbook.KindAssertion, Name: name, Args: args}
}

func TestBindErrors(t *testing.T) {
	ws := fakeide.New()
	t.Cleanup(func() { _ = ws.Close() })

	tests := []struct {
		name    string
		step    playbook.StepOutline
		wantErr string
	}{
		{name: "unknown step", step: act("teleport", nil), wantErr: `unknown step "teleport"`},
		{name: "missing arg", step: act("type", nil), wantErr: "missing arg text"},
		{name: "unexpected arg", step: act("delete_all", map[string]string{"all": "yes"}), wantErr: "unexpected arg all"},
		{name: "wrong kind", step: act("tab", map[string]string{"name": "a"}), wantErr: "tab is an assertion, not an action"},
		{name: "bad line", step: act("go_to", map[string]string{"line": "top"}), wantErr: `arg line: "top" is not a number`},
		{name: "zero column", step: act("go_to", map[string]string{"line": "1", "column": "0"}), wantErr: "must be at least 1"},
		{name: "bad key", step: act("press", map[string]string{"keys": "Hyper"}), wantErr: `unknown key "Hyper"`},
		{name: "empty menu", step: act("menu", map[string]string{"path": " > "}), wantErr: "empty menu path"},
		{name: "bad source", step: check("text", map[string]string{"source": "status", "contains": "x"}), wantErr: `unknown source "status"`},
		{name: "bad marker kind", step: check("no_markers", map[string]string{"kind": "hint"}), wantErr: "arg kind"},
		{
			name:    "waiting action",
			step:    playbook.StepOutline{Kind: playbook.KindAction, Name: "delete_all", Timeout: time.Second},
			wantErr: "actions do not wait",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.Bind(outline(act("delete_all", nil), tt.step), ws, script.Defaults{})
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)

			var se *playbook.StepError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 1, se.Index)
			assert.Equal(t, tt.step.Name, se.Name)
			assert.Equal(t, "bind", se.Scenario)
		})
	}
}

func TestBindDefaults(t *testing.T) {
	ws := fakeide.New()
	t.Cleanup(func() { _ = ws.Close() })

	explicit := check("tab", map[string]string{"name": "a.py"})
	explicit.Timeout = 3 * time.Second

	sc, err := script.Bind(outline(
		check("tab", map[string]string{"name": "a.py"}),
		explicit,
		act("go_to", map[string]string{"line": "current"}),
	), ws, script.Defaults{Timeout: 7 * time.Second, Poll: 25 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, 3, sc.Len())

	assert.Equal(t, 7*time.Second, sc.Step(0).Timeout())
	assert.Equal(t, 25*time.Millisecond, sc.Step(0).PollInterval())
	assert.Equal(t, 3*time.Second, sc.Step(1).Timeout())
	assert.Equal(t, "action go_to(line=current)", sc.Step(2).String())
}

func TestBindKindCanBeOmitted(t *testing.T) {
	ws := fakeide.New()
	t.Cleanup(func() { _ = ws.Close() })

	sc, err := script.Bind(outline(playbook.StepOutline{Name: "dialog_closed"}), ws, script.Defaults{})
	require.NoError(t, err)
	assert.Equal(t, playbook.KindAssertion, sc.Step(0).Kind())
}

func TestVocabulary(t *testing.T) {
	v := script.Vocabulary()
	assert.Len(t, v[playbook.KindAction], 15)
	assert.Len(t, v[playbook.KindAssertion], 9)
	assert.Contains(t, v[playbook.KindAction], "go_to")
	assert.Contains(t, v[playbook.KindAssertion], "marker_at_cursor")
}

// TestOutlineRoundTrip binds each bundled script, writes the bound scenario
// back out as YAML and checks that parsing and binding it again yields the
// same steps.
func TestOutlineRoundTrip(t *testing.T) {
	scripts, err := script.LoadDir(scenariosDir, "")
	require.NoError(t, err)

	ws := fakeide.New()
	t.Cleanup(func() { _ = ws.Close() })
	defaults := script.Defaults{Timeout: 4 * time.Second, Poll: 30 * time.Millisecond}

	for _, s := range scripts {
		t.Run(s.Outline.Name, func(t *testing.T) {
			sc, err := script.Bind(s.Outline, ws, defaults)
			require.NoError(t, err)

			b, err := yaml.Marshal(sc.Outline())
			require.NoError(t, err)
			o, err := script.Parse(b)
			require.NoError(t, err, "%s", b)
			assert.Equal(t, sc.Outline(), o)

			again, err := script.Bind(o, ws, defaults)
			require.NoError(t, err)
			require.Equal(t, sc.Len(), again.Len())
			for i := range sc.Len() {
				want, got := sc.Step(i), again.Step(i)
				assert.Equal(t, want.String(), got.String(), "step %d", i)
				assert.Equal(t, want.Args(), got.Args(), "step %d", i)
				assert.Equal(t, want.Timeout(), got.Timeout(), "step %d", i)
				assert.Equal(t, want.PollInterval(), got.PollInterval(), "step %d", i)
			}
		})
	}
}

func TestOutlineRoundTripKeepsLeadingNewline(t *testing.T) {
	s, err := script.Load(filepath.Join(scenariosDir, "04-find-definition.yaml"))
	require.NoError(t, err)

	b, err := yaml.Marshal(s.Outline)
	require.NoError(t, err)
	o, err := script.Parse(b)
	require.NoError(t, err)

	var texts []string
	for _, st := range o.Steps {
		if st.Name == "type" {
			texts = append(texts, st.Args["text"])
		}
	}
	assert.Contains(t, texts, "\nvar2 = math.add(100, 200)")
	assert.Equal(t, s.Outline, o)
}

func TestEmptyOutlineRoundTrip(t *testing.T) {
	b, err := yaml.Marshal(playbook.NewScenario("empty").Outline())
	require.NoError(t, err)
	o, err := script.Parse(b)
	require.NoError(t, err)
	assert.Empty(t, o.Steps)

	ws := fakeide.New()
	t.Cleanup(func() { _ = ws.Close() })
	sc, err := script.Bind(o, ws, script.Defaults{})
	require.NoError(t, err)

	res := playbook.NewDriver(playbook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Run(t.Context(), sc)
	assert.True(t, res.Passed())
}

// TestScenariosAgainstSimulatedIDE runs the bundled scripts, in order, as
// one suite sharing a workspace.
func TestScenariosAgainstSimulatedIDE(t *testing.T) {
	scripts, err := script.LoadDir(scenariosDir, "")
	require.NoError(t, err)

	d := playbook.NewDriver(
		playbook.WithTimeout(3*time.Second),
		playbook.WithPollInterval(10*time.Millisecond),
		playbook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	open := func(context.Context) (*fakeide.Workspace, error) {
		return fakeide.New(fakeide.WithLatency(10*time.Millisecond), fakeide.WithRunDelay(10*time.Millisecond)), nil
	}
	build := func(ws *fakeide.Workspace) ([]*playbook.Scenario, error) {
		var scenarios []*playbook.Scenario
		for _, s := range scripts {
			sc, err := script.Bind(s.Outline, ws, script.Defaults{})
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, sc)
		}
		return scenarios, nil
	}

	res, err := playbook.RunSuite(t.Context(), d, open, build)
	require.NoError(t, err)
	for _, r := range res.Results {
		assert.True(t, r.Passed(), "%s: %v", r.Scenario, r.Err())
	}
	assert.Equal(t, 4, res.Passed)
}

func TestScenarioFailsWithoutProject(t *testing.T) {
	s, err := script.Load(filepath.Join(scenariosDir, "02-error-markers.yaml"))
	require.NoError(t, err)

	ws := fakeide.New()
	t.Cleanup(func() { _ = ws.Close() })
	sc, err := script.Bind(s.Outline, ws, script.Defaults{})
	require.NoError(t, err)

	res := playbook.NewDriver(playbook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Run(t.Context(), sc)
	assert.Equal(t, playbook.StatusFailed, res.Status)
	assert.Equal(t, 0, res.FailedStep)
	assert.ErrorContains(t, res.Err(), `editor tab "main.py" not found`)
}
