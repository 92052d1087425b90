// Package tmuxcli runs tmux commands against a private server socket. It is
// internal to the playbook package.
package tmuxcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes tmux commands against a specific server socket.
type Runner struct {
	tmuxPath   string
	socketPath string
	configPath string
}

// New creates a Runner bound to the given tmux binary and socket path.
func New(tmuxPath, socketPath string) *Runner {
	return &Runner{
		tmuxPath:   tmuxPath,
		socketPath: socketPath,
	}
}

// SetConfigPath sets the path to a tmux config file. When set, every tmux
// invocation includes -f <configPath> before other arguments.
func (r *Runner) SetConfigPath(path string) {
	r.configPath = path
}

// Run executes a tmux command and returns its stdout. A failure carries
// stderr in an *Error.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("tmux: no command")
	}

	var fullArgs []string
	if r.configPath != "" {
		fullArgs = append(fullArgs, "-f", r.configPath)
	}
	fullArgs = append(fullArgs, "-S", r.socketPath)
	fullArgs = append(fullArgs, args...)
	cmd := exec.CommandContext(ctx, r.tmuxPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &Error{
			Op:     args[0],
			Args:   fullArgs,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.String(), nil
}

// SocketPath returns the socket path used by this runner.
func (r *Runner) SocketPath() string {
	return r.socketPath
}

// TmuxPath returns the path to the tmux binary.
func (r *Runner) TmuxPath() string {
	return r.tmuxPath
}

// Error represents a tmux command failure.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tmux %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// serverGoneMessages are stderr fragments tmux prints when the server or
// its only session no longer exists.
var serverGoneMessages = []string{
	"no server running",
	"error connecting to",
	"can't find session",
	"can't find pane",
	"server exited",
}

// ServerGone reports whether err says the tmux server, session or pane has
// disappeared, as opposed to a bad command.
func ServerGone(err error) bool {
	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	for _, msg := range serverGoneMessages {
		if strings.Contains(te.Stderr, msg) {
			return true
		}
	}
	return false
}

// Version runs "tmux -V" and returns the version string (e.g. "3.4").
func Version(ctx context.Context, tmuxPath string) (string, error) {
	cmd := exec.CommandContext(ctx, tmuxPath, "-V")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux -V failed: %v (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	// Output is like "tmux 3.4" or "tmux next-3.5"
	output := strings.TrimSpace(stdout.String())
	return strings.TrimPrefix(output, "tmux "), nil
}

// WaitForSession polls until the tmux session answers or the timeout
// expires.
func (r *Runner) WaitForSession(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := r.Run(ctx, "list-panes", "-F", "#{pane_id}")
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("tmux session not ready after %v: %w", timeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
