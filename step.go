package playbook

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// StepKind distinguishes actions from assertions.
type StepKind int

const (
	KindAction StepKind = iota + 1
	KindAssertion
)

func (k StepKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindAssertion:
		return "assertion"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

func (k StepKind) MarshalText() ([]byte, error) {
	if k != KindAction && k != KindAssertion {
		return nil, fmt.Errorf("unknown step kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *StepKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "action":
		*k = KindAction
	case "assertion":
		*k = KindAssertion
	default:
		return fmt.Errorf("unknown step kind %q", string(b))
	}
	return nil
}

// Effect performs a command against the page. It returns once the command
// has been dispatched; the UI reacts asynchronously.
type Effect func(ctx context.Context) error

// Step is one action or assertion of a scenario. The zero value is invalid;
// build steps with Action or Assertion.
type Step struct {
	kind    StepKind
	name    string
	args    map[string]string
	effect  Effect
	matcher Matcher
	timeout time.Duration
	poll    time.Duration
}

// StepOption configures a Step.
type StepOption func(*Step)

// WithArgs records the arguments a step was built from. They are reported
// in outlines and results; they do not change what the step does.
func WithArgs(args map[string]string) StepOption {
	return func(s *Step) {
		s.args = maps.Clone(args)
	}
}

// WithWaitPollInterval overrides the driver's poll interval for one
// assertion. A value of 0 means "use defaults".
func WithWaitPollInterval(d time.Duration) StepOption {
	return func(s *Step) {
		s.poll = d
	}
}

// Action returns a step that performs effect.
func Action(name string, effect Effect, opts ...StepOption) Step {
	s := Step{kind: KindAction, name: name, effect: effect}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Assertion returns a step that waits up to timeout for m to match.
// A timeout of 0 uses the driver default.
func Assertion(name string, m Matcher, timeout time.Duration, opts ...StepOption) Step {
	s := Step{kind: KindAssertion, name: name, matcher: m, timeout: timeout}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (s Step) Kind() StepKind         { return s.kind }
func (s Step) Name() string           { return s.name }
func (s Step) Effect() Effect         { return s.effect }
func (s Step) Matcher() Matcher       { return s.matcher }
func (s Step) Timeout() time.Duration { return s.timeout }
func (s Step) PollInterval() time.Duration {
	return s.poll
}

// Args returns a copy of the step's recorded arguments.
func (s Step) Args() map[string]string {
	return maps.Clone(s.args)
}

func (s Step) validate() error {
	if s.name == "" {
		return fmt.Errorf("%s step has no name", s.kind)
	}
	switch s.kind {
	case KindAction:
		if s.effect == nil {
			return fmt.Errorf("action %q has no effect", s.name)
		}
	case KindAssertion:
		if s.matcher == nil {
			return fmt.Errorf("assertion %q has no matcher", s.name)
		}
		if s.timeout < 0 {
			return fmt.Errorf("assertion %q: negative timeout %v", s.name, s.timeout)
		}
		if s.poll < 0 {
			return fmt.Errorf("assertion %q: negative poll interval %v", s.name, s.poll)
		}
	default:
		return fmt.Errorf("step %q: unknown kind %d", s.name, int(s.kind))
	}
	return nil
}

// Outline returns the serializable description of the step.
func (s Step) Outline() StepOutline {
	return StepOutline{
		Kind:    s.kind,
		Name:    s.name,
		Args:    maps.Clone(s.args),
		Timeout: s.timeout,
		Poll:    s.poll,
	}
}

func (s Step) String() string {
	if len(s.args) == 0 {
		return s.kind.String() + " " + s.name
	}
	keys := slices.Sorted(maps.Keys(s.args))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.args[k]
	}
	return fmt.Sprintf("%s %s(%s)", s.kind, s.name, strings.Join(parts, ", "))
}
