package playbook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cboone/playbook/internal/tmuxcli"
)

const minTmuxVersion = "3.0"

// ErrTmuxNotFound is returned by OpenTerminal when no tmux binary is
// configured and none is on $PATH. Tests usually skip on it.
var ErrTmuxNotFound = errors.New("tmux not found")

// resolveTmuxPath determines the tmux binary path by checking, in order:
// 1. WithTmuxPath option
// 2. PLAYBOOK_TMUX environment variable
// 3. $PATH lookup
func resolveTmuxPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if envPath := os.Getenv("PLAYBOOK_TMUX"); envPath != "" {
		return envPath, nil
	}
	found, err := exec.LookPath("tmux")
	if err != nil {
		return "", ErrTmuxNotFound
	}
	return found, nil
}

func checkTmuxVersion(ctx context.Context, tmuxPath string) error {
	version, err := tmuxcli.Version(ctx, tmuxPath)
	if err != nil {
		return err
	}
	if !versionAtLeast(version, minTmuxVersion) {
		return fmt.Errorf("tmux version %s is below minimum %s", version, minTmuxVersion)
	}
	return nil
}

// versionAtLeast returns true if version >= minVersion.
// Handles version strings like "3.4", "next-3.5", "3.3a".
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

func versionAtLeast(version, minVersion string) bool {
	parseMajorMinor := func(v string) (int, int, bool) {
		m := versionRe.FindStringSubmatch(v)
		if m == nil {
			return 0, 0, false
		}
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return major, minor, true
	}

	vMajor, vMinor, ok1 := parseMajorMinor(version)
	mMajor, mMinor, ok2 := parseMajorMinor(minVersion)
	if !ok1 || !ok2 {
		return false
	}
	if vMajor != mMajor {
		return vMajor > mMajor
	}
	return vMinor >= mMinor
}

// generateSocketPath returns an unused socket path under os.TempDir named
// after label.
func generateSocketPath(label string) (string, error) {
	sanitized := sanitizeName(label)
	b := make([]byte, 4)
	for range 10 {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate socket name: %w", err)
		}
		name := fmt.Sprintf("playbook-%s-%s.sock", sanitized, hex.EncodeToString(b))
		path := filepath.Join(os.TempDir(), name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", errors.New("could not generate unique socket path after 10 attempts")
}

// sanitizeName replaces characters that are not filesystem-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	// Unix socket paths are limited to 104/108 bytes.
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

func writeConfig(configPath string, opts terminalOptions) error {
	histLimit := opts.historyLimit
	if histLimit == 0 {
		histLimit = defaultHistoryLimit
	}

	config := fmt.Sprintf("set-option -g history-limit %d\nset-option -g remain-on-exit on\nset-option -g status off\n", histLimit)
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		return fmt.Errorf("write tmux config: %w", err)
	}
	return nil
}

func startSession(ctx context.Context, runner *tmuxcli.Runner, binary string, opts terminalOptions) error {
	args := []string{
		"new-session", "-d",
		"-x", strconv.Itoa(opts.width),
		"-y", strconv.Itoa(opts.height),
	}
	if opts.dir != "" {
		args = append(args, "-c", opts.dir)
	}
	args = append(args, "--", binary)
	args = append(args, opts.args...)

	if _, err := runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("start tmux session: %w", err)
	}
	return nil
}

func capturePaneContent(ctx context.Context, runner *tmuxcli.Runner, pane string) (string, error) {
	return runner.Run(ctx, "capture-pane", "-p", "-t", pane)
}

func capturePaneScrollback(ctx context.Context, runner *tmuxcli.Runner, pane string) (string, error) {
	return runner.Run(ctx, "capture-pane", "-p", "-t", pane, "-S", "-", "-E", "-")
}

func sendKeys(ctx context.Context, runner *tmuxcli.Runner, pane string, keys []string) error {
	args := append([]string{"send-keys", "-t", pane}, keys...)
	_, err := runner.Run(ctx, args...)
	return err
}

func sendLiteral(ctx context.Context, runner *tmuxcli.Runner, pane, text string) error {
	_, err := runner.Run(ctx, "send-keys", "-t", pane, "-l", text)
	return err
}

func resizeWindow(ctx context.Context, runner *tmuxcli.Runner, pane string, width, height int) error {
	_, err := runner.Run(ctx, "resize-window", "-t", pane, "-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	return err
}

// paneState holds the dead status and exit code of a pane.
type paneState struct {
	dead       bool
	exitStatus int
}

func getPaneState(ctx context.Context, runner *tmuxcli.Runner, pane string) (paneState, error) {
	output, err := runner.Run(ctx, "list-panes", "-t", pane, "-F", "#{pane_dead} #{pane_dead_status}")
	if err != nil {
		return paneState{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(output), " ", 2)
	dead := parts[0] == "1"
	status := 0
	if dead && len(parts) >= 2 {
		status, _ = strconv.Atoi(parts[1])
	}
	return paneState{dead: dead, exitStatus: status}, nil
}

func getCursorPosition(ctx context.Context, runner *tmuxcli.Runner, pane string) (row, col int, err error) {
	output, err := runner.Run(ctx, "display-message", "-p", "-t", pane, "#{cursor_x} #{cursor_y}")
	if err != nil {
		return 0, 0, err
	}

	line := strings.TrimSpace(output)
	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected display-message output: %q", line)
	}

	col, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing cursor_x: %w", err)
	}
	row, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing cursor_y: %w", err)
	}
	return row, col, nil
}

func killServer(ctx context.Context, runner *tmuxcli.Runner) error {
	_, err := runner.Run(ctx, "kill-server")
	return err
}
