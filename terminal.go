package playbook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cboone/playbook/internal/tmuxcli"
)

// ErrTmuxUnsupported is returned by OpenTerminal when the tmux binary is
// older than the supported minimum or cannot report its version.
var ErrTmuxUnsupported = errors.New("unsupported tmux")

// Terminal is a console page object: a program running inside a private
// tmux server. It implements TextSource, Typer and KeyPresser.
type Terminal struct {
	runner     *tmuxcli.Runner
	configPath string
	pane       string

	mu     sync.Mutex
	width  int
	height int
	closed bool
}

// OpenTerminal starts binary in a new tmux server. The caller owns the
// Terminal and must Close it.
func OpenTerminal(ctx context.Context, binary string, userOpts ...TerminalOption) (*Terminal, error) {
	opts := defaultTerminalOptions()
	for _, o := range userOpts {
		o(&opts)
	}

	tmuxPath, err := resolveTmuxPath(opts.tmuxPath)
	if err != nil {
		return nil, fmt.Errorf("playbook: open: %w", err)
	}
	if err := checkTmuxVersion(ctx, tmuxPath); err != nil {
		return nil, fmt.Errorf("playbook: open: %w: %v", ErrTmuxUnsupported, err)
	}

	socketPath, err := generateSocketPath(filepath.Base(binary))
	if err != nil {
		return nil, fmt.Errorf("playbook: open: %w", err)
	}
	runner := tmuxcli.New(tmuxPath, socketPath)

	// Environment variables are applied by running the binary through env.
	actualBinary := binary
	sessionOpts := opts
	if len(opts.env) > 0 {
		args := make([]string, 0, len(opts.env)+1+len(opts.args))
		args = append(args, opts.env...)
		args = append(args, binary)
		args = append(args, opts.args...)
		sessionOpts.args = args
		actualBinary = "/usr/bin/env"
	}

	configPath := socketPath + ".conf"
	if err := writeConfig(configPath, opts); err != nil {
		return nil, fmt.Errorf("playbook: open: %w", err)
	}
	runner.SetConfigPath(configPath)

	cleanup := func() {
		_ = killServer(context.Background(), runner)
		os.Remove(configPath)
	}

	if err := startSession(ctx, runner, actualBinary, sessionOpts); err != nil {
		cleanup()
		return nil, fmt.Errorf("playbook: open: %w", err)
	}
	if err := runner.WaitForSession(ctx, 5*time.Second); err != nil {
		cleanup()
		return nil, fmt.Errorf("playbook: open: %w", err)
	}

	output, err := runner.Run(ctx, "list-panes", "-F", "#{pane_id}")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("playbook: open: failed to get pane ID: %w", err)
	}

	return &Terminal{
		runner:     runner,
		configPath: configPath,
		pane:       strings.TrimSpace(output),
		width:      opts.width,
		height:     opts.height,
	}, nil
}

// MustOpenTerminal opens a terminal for the duration of a test. It skips the
// test when tmux is missing or too old, fails it on any other error, and
// closes the terminal through t.Cleanup.
func MustOpenTerminal(t testing.TB, binary string, opts ...TerminalOption) *Terminal {
	t.Helper()
	term, err := OpenTerminal(t.Context(), binary, opts...)
	if errors.Is(err, ErrTmuxNotFound) || errors.Is(err, ErrTmuxUnsupported) {
		t.Skipf("%v", err)
	}
	if err != nil {
		t.Fatalf("%v", err)
	}
	t.Cleanup(func() {
		_ = term.Close()
	})
	return term
}

// Close kills the tmux server. It is safe to call more than once; every
// later call on the terminal returns a *SessionError.
func (term *Terminal) Close() error {
	term.mu.Lock()
	if term.closed {
		term.mu.Unlock()
		return nil
	}
	term.closed = true
	term.mu.Unlock()

	err := killServer(context.Background(), term.runner)
	os.Remove(term.configPath)
	if err != nil && !tmuxcli.ServerGone(err) {
		return fmt.Errorf("playbook: close: %w", err)
	}
	return nil
}

// CurrentText returns the visible screen content. tmux trims trailing
// whitespace from each row, so match prompts without their final space.
func (term *Terminal) CurrentText(ctx context.Context) (string, error) {
	scr, err := term.Screen(ctx)
	if err != nil {
		return "", err
	}
	return scr.String(), nil
}

// SendKeys sends raw tmux key sequences. Escape hatch for advanced use.
func (term *Terminal) SendKeys(ctx context.Context, keys ...string) error {
	if err := term.requireAlive(ctx, "send-keys"); err != nil {
		return err
	}
	if err := sendKeys(ctx, term.runner, term.pane, keys); err != nil {
		return term.fail(ctx, "send-keys", err)
	}
	return nil
}

// Type sends text literally, as sequential keypresses.
func (term *Terminal) Type(ctx context.Context, text string) error {
	if err := term.requireAlive(ctx, "send-keys"); err != nil {
		return err
	}
	if err := sendLiteral(ctx, term.runner, term.pane, text); err != nil {
		return term.fail(ctx, "send-keys", err)
	}
	return nil
}

// Press sends one or more special keys.
func (term *Terminal) Press(ctx context.Context, keys ...Key) error {
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = string(k)
	}
	return term.SendKeys(ctx, strs...)
}

// Screen captures the visible pane.
func (term *Terminal) Screen(ctx context.Context) (*Screen, error) {
	if err := term.requireAlive(ctx, "capture"); err != nil {
		return nil, err
	}

	raw, err := capturePaneContent(ctx, term.runner, term.pane)
	if err != nil {
		return nil, term.fail(ctx, "capture", err)
	}

	width, height := term.Size()
	scr := newScreen(raw, width, height)

	// The cursor is best-effort; a screen without one is still useful.
	if row, col, err := getCursorPosition(ctx, term.runner, term.pane); err == nil {
		scr.cursorRow = row
		scr.cursorCol = col
	}
	return scr, nil
}

// Scrollback captures the full scrollback buffer, not just the visible
// screen.
//
// The returned Screen has one line per scrollback row (oldest to newest).
// Its height reflects the number of captured lines and its width is the
// widest captured line.
func (term *Terminal) Scrollback(ctx context.Context) (*Screen, error) {
	if err := term.requireAlive(ctx, "capture"); err != nil {
		return nil, err
	}

	raw, err := capturePaneScrollback(ctx, term.runner, term.pane)
	if err != nil {
		return nil, term.fail(ctx, "capture", err)
	}

	lines := strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
	maxWidth := 0
	for _, l := range lines {
		maxWidth = max(maxWidth, len(l))
	}
	return newScreen(raw, maxWidth, len(lines)), nil
}

// Resize changes the terminal dimensions and sends SIGWINCH to the program.
func (term *Terminal) Resize(ctx context.Context, width, height int) error {
	if err := term.requireAlive(ctx, "resize"); err != nil {
		return err
	}
	if err := resizeWindow(ctx, term.runner, term.pane, width, height); err != nil {
		return term.fail(ctx, "resize", err)
	}
	term.mu.Lock()
	term.width, term.height = width, height
	term.mu.Unlock()
	return nil
}

// Size returns the terminal dimensions.
func (term *Terminal) Size() (width, height int) {
	term.mu.Lock()
	defer term.mu.Unlock()
	return term.width, term.height
}

// Exited reports whether the program has exited, and its exit status.
func (term *Terminal) Exited(ctx context.Context) (bool, int, error) {
	if term.isClosed() {
		return false, 0, &SessionError{Op: "status", Err: ErrSessionClosed}
	}
	state, err := getPaneState(ctx, term.runner, term.pane)
	if err != nil {
		return false, 0, term.fail(ctx, "status", err)
	}
	return state.dead, state.exitStatus, nil
}

// ProcessExited matches once the terminal's program has exited with
// status.
func ProcessExited(term *Terminal, status int) Matcher {
	desc := fmt.Sprintf("process to exit with status %d", status)
	return func(ctx context.Context) (Match, error) {
		dead, got, err := term.Exited(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		if !dead {
			return Match{Description: desc, Observed: "process running"}, nil
		}
		return Match{OK: got == status, Description: desc, Observed: fmt.Sprintf("process exited with status %d", got)}, nil
	}
}

// requireAlive returns a *SessionError once the terminal is closed or its
// program has exited.
func (term *Terminal) requireAlive(ctx context.Context, op string) error {
	if term.isClosed() {
		return &SessionError{Op: op, Err: ErrSessionClosed}
	}
	state, err := getPaneState(ctx, term.runner, term.pane)
	if err != nil {
		return term.fail(ctx, op, err)
	}
	if state.dead {
		return &SessionError{Op: op, Err: fmt.Errorf("process exited unexpectedly (status %d)", state.exitStatus)}
	}
	return nil
}

// fail classifies a tmux failure. A vanished server is a session failure;
// anything else is local to the call.
func (term *Terminal) fail(ctx context.Context, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("playbook: %s: %w", op, context.Cause(ctx))
	case term.isClosed():
		return &SessionError{Op: op, Err: ErrSessionClosed}
	case tmuxcli.ServerGone(err):
		return &SessionError{Op: op, Err: err}
	default:
		return fmt.Errorf("playbook: %s: %w", op, err)
	}
}

func (term *Terminal) isClosed() bool {
	term.mu.Lock()
	defer term.mu.Unlock()
	return term.closed
}
