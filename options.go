package playbook

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type options struct {
	timeout      time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
	tracer       trace.Tracer
	runID        func() string
}

// Option configures a Driver created by NewDriver.
type Option func(*options)

// WithTimeout sets the default wait budget for assertions that do not set
// their own. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPollInterval sets the default polling interval for assertions.
// Non-positive values keep the default; positive values under 10ms are
// clamped to 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithLogger sets the logger the driver reports step outcomes to.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracer sets the tracer used for scenario and step spans. Defaults to
// the global OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithRunIDs replaces the run ID generator. Defaults to UUIDv7.
func WithRunIDs(next func() string) Option {
	return func(o *options) {
		o.runID = next
	}
}

type terminalOptions struct {
	args         []string
	width        int
	height       int
	env          []string
	dir          string
	tmuxPath     string
	historyLimit int
}

// TerminalOption configures a Terminal created by OpenTerminal.
type TerminalOption func(*terminalOptions)

// WithCommandArgs sets the arguments passed to the binary.
func WithCommandArgs(args ...string) TerminalOption {
	return func(o *terminalOptions) {
		o.args = args
	}
}

// WithSize sets the terminal dimensions (columns x rows).
func WithSize(width, height int) TerminalOption {
	return func(o *terminalOptions) {
		o.width = width
		o.height = height
	}
}

// WithEnv appends environment variables to the process environment.
// Each entry should be in "KEY=VALUE" format.
func WithEnv(env ...string) TerminalOption {
	return func(o *terminalOptions) {
		o.env = append(o.env, env...)
	}
}

// WithDir sets the working directory for the binary.
func WithDir(dir string) TerminalOption {
	return func(o *terminalOptions) {
		o.dir = dir
	}
}

// WithTmuxPath sets the path to the tmux binary. Defaults to "tmux"
// (resolved via $PATH). The PLAYBOOK_TMUX environment variable is consulted
// before the default.
func WithTmuxPath(path string) TerminalOption {
	return func(o *terminalOptions) {
		o.tmuxPath = path
	}
}

// WithHistoryLimit sets the tmux scrollback history limit.
// A value of 0 uses the default (10000).
func WithHistoryLimit(limit int) TerminalOption {
	return func(o *terminalOptions) {
		o.historyLimit = limit
	}
}

const (
	defaultWidth        = 80
	defaultHeight       = 24
	defaultTimeout      = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultHistoryLimit = 10000
	minPollInterval     = 10 * time.Millisecond
)

func defaultTerminalOptions() terminalOptions {
	return terminalOptions{
		width:        defaultWidth,
		height:       defaultHeight,
		historyLimit: defaultHistoryLimit,
	}
}

// resolveWait picks the effective budget for one assertion from the step's
// own values and the driver defaults.
func resolveWait(stepTimeout, stepPoll, timeout, poll time.Duration) (time.Duration, time.Duration) {
	if stepTimeout > 0 {
		timeout = stepTimeout
	}
	if stepPoll > 0 {
		poll = max(stepPoll, minPollInterval)
	}
	// WaitUntil needs a poll interval strictly inside the budget.
	timeout = max(timeout, 2*time.Nanosecond)
	if poll >= timeout {
		poll = timeout / 2
	}
	return timeout, poll
}
