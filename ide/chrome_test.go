package ide_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/ide"
)

func findChrome(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("PLAYBOOK_CHROME"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome or Chromium binary found; set PLAYBOOK_CHROME to run browser tests")
	return ""
}

func openFixture(t *testing.T) *ide.Chrome {
	t.Helper()
	exe := findChrome(t)

	srv := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	c, err := ide.OpenChrome(ctx, srv.URL+"/workbench.html",
		ide.WithExecPath(exe),
		ide.WithChromeFlag("no-sandbox", true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestChromeWorkbench(t *testing.T) {
	c := openFixture(t)
	ed, dlg, con := c.Editor(), c.Dialog(), c.Console()

	d := playbook.NewDriver(playbook.WithTimeout(5 * time.Second))
	d.Test(t, playbook.NewScenario("chrome workbench",
		playbook.Assertion("static marker", playbook.MarkerAt(ed, playbook.MarkerWarning, playbook.OnLine(2)), 0),
		playbook.Assertion("no errors", playbook.NoMarkers(ed, playbook.MarkerError), 0),
		playbook.Action("new file", func(ctx context.Context) error {
			return c.Menu().Click(ctx, ide.MenuNewFile)
		}),
		playbook.Assertion("dialog", ide.DialogOpen(dlg, "New File"), 0),
		playbook.Action("name", func(ctx context.Context) error {
			return dlg.Type(ctx, "math.py")
		}),
		playbook.Action("ok", func(ctx context.Context) error {
			return dlg.Click(ctx, "OK")
		}),
		playbook.Assertion("dialog closed", playbook.Not(ide.DialogOpen(dlg, "")), 0),
		playbook.Assertion("math.py tab", playbook.TabPresent(ed, "math.py"), 0),
		playbook.Action("open main.py", func(ctx context.Context) error {
			return ed.OpenFile(ctx, "demo/main.py")
		}),
		playbook.Assertion("main.py tab", playbook.TabPresent(ed, "main.py"), 0),
		playbook.Action("type", func(ctx context.Context) error {
			return ed.Type(ctx, "abc")
		}),
		playbook.Assertion("typed", playbook.TextVisible(ed, "abc"), 0),
		playbook.Action("close main.py", func(ctx context.Context) error {
			return ed.CloseTab(ctx, "main.py")
		}),
		playbook.Assertion("main.py closed", playbook.Not(playbook.TabPresent(ed, "main.py")), 0),
		playbook.Action("palette", c.Palette().Open),
		playbook.Action("run", func(ctx context.Context) error {
			return c.Palette().Start(ctx, "demo: run")
		}),
		playbook.Assertion("run tab", playbook.TabPresent(con, "demo: run"), 0),
		playbook.Assertion("output", playbook.TextVisible(con, "hello from run"), 0),
	))

	pos, err := ed.CursorPosition(t.Context())
	require.NoError(t, err)
	assert.Equal(t, playbook.At(1, 1), pos)
}

func TestChromeMissingElements(t *testing.T) {
	c := openFixture(t)
	ctx := t.Context()

	err := c.Menu().Click(ctx, "Help > About")
	assert.ErrorContains(t, err, `"Help" not found`)
	assert.False(t, playbook.IsSessionError(err))

	err = c.Editor().CloseTab(ctx, "nope.py")
	assert.ErrorContains(t, err, "not found")

	text, err := c.Editor().Proposals().CurrentText(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestChromeClosedIsSessionError(t *testing.T) {
	c := openFixture(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Editor().CurrentText(t.Context())
	assert.True(t, playbook.IsSessionError(err))
	assert.ErrorIs(t, err, playbook.ErrSessionClosed)
}
