package playbook

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSessionClosed is reported by page objects whose session has already
// been released.
var ErrSessionClosed = errors.New("session closed")

// TimeoutError reports that a condition never held within its wait budget.
// It is an ordinary scenario failure, not a crash.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Elapsed     time.Duration
	Attempts    int
	Observed    string

	// Recent holds the last few observed values, oldest first.
	Recent []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("playbook: wait: timed out after %v (%d attempts)\n    waiting for: %s\n    recent observations (oldest to newest):\n%s",
		e.Timeout, e.Attempts, e.Description, formatRecentObservations(e.Recent))
}

// PredicateError reports that a matcher failed to evaluate, for example
// because the page returned a malformed response. It is never retried.
type PredicateError struct {
	Description string
	Err         error
}

func (e *PredicateError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("playbook: wait: matcher failed: %v", e.Err)
	}
	return fmt.Sprintf("playbook: wait: matcher failed while waiting for %s: %v", e.Description, e.Err)
}

func (e *PredicateError) Unwrap() error {
	return e.Err
}

// SessionError reports that the page-object session is unavailable or
// disconnected. It aborts the running scenario and every later scenario
// sharing the session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("playbook: session: %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// ActionError reports that a step's effect could not be dispatched.
// Unlike SessionError it only aborts the current scenario.
type ActionError struct {
	Name string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("playbook: action %q: %v", e.Name, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// StepError locates a failure inside a scenario.
type StepError struct {
	Scenario string
	Index    int
	Name     string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("scenario %q: step %d (%s): %v", e.Scenario, e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// SessionFailure wraps err as a SessionError for op. Errors that already
// carry a SessionError are returned unchanged; nil stays nil.
func SessionFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SessionError
	if errors.As(err, &se) {
		return err
	}
	return &SessionError{Op: op, Err: err}
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsSessionError reports whether err is, or wraps, a SessionError.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}

// IsPredicateError reports whether err is, or wraps, a PredicateError.
func IsPredicateError(err error) bool {
	var pe *PredicateError
	return errors.As(err, &pe)
}

func formatRecentObservations(observed []string) string {
	if len(observed) == 0 {
		return "    (nothing observed)"
	}

	var b strings.Builder
	for i, o := range observed {
		fmt.Fprintf(&b, "    observation %d/%d:\n%s", i+1, len(observed), formatBox(o))
		if i < len(observed)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatBox draws a border around multi-line text for error messages.
func formatBox(text string) string {
	lines := strings.Split(text, "\n")
	width := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > width {
			width = n
		}
	}
	if width == 0 {
		width = 1
	}

	var b strings.Builder
	border := strings.Repeat("\u2500", width)

	fmt.Fprintf(&b, "    \u250c%s\u2510\n", border)
	for _, line := range lines {
		padded := line
		if n := len([]rune(padded)); n < width {
			padded += strings.Repeat(" ", width-n)
		}
		fmt.Fprintf(&b, "    \u2502%s\u2502\n", padded)
	}
	fmt.Fprintf(&b, "    \u2514%s\u2518", border)

	return b.String()
}
