package playbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cboone/playbook"

// Status is the outcome of a scenario or a step.
type Status int

const (
	StatusPassed Status = iota + 1
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if s < StatusPassed || s > StatusSkipped {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "passed":
		*s = StatusPassed
	case "failed":
		*s = StatusFailed
	case "skipped":
		*s = StatusSkipped
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// StepReport records what happened to one step.
type StepReport struct {
	Index    int
	Kind     StepKind
	Name     string
	Status   Status
	Elapsed  time.Duration
	Attempts int
	Observed string
}

// Result is the outcome of one scenario run.
type Result struct {
	RunID    string
	Scenario string
	Status   Status

	// FailedStep is the index of the step that failed, or -1.
	FailedStep int
	Cause      error

	// Observed is the last value the failing assertion saw, if any.
	Observed string

	Started time.Time
	Elapsed time.Duration
	Steps   []StepReport
}

// Passed reports whether every step ran and held.
func (r Result) Passed() bool {
	return r.Status == StatusPassed
}

// Err returns nil for a passed run. A failed run returns a *StepError
// locating the failure; a skipped run returns its cause.
func (r Result) Err() error {
	switch r.Status {
	case StatusPassed:
		return nil
	case StatusSkipped:
		return fmt.Errorf("scenario %q skipped: %w", r.Scenario, r.Cause)
	}
	if r.FailedStep < 0 || r.FailedStep >= len(r.Steps) {
		return fmt.Errorf("scenario %q: %w", r.Scenario, r.Cause)
	}
	return &StepError{
		Scenario: r.Scenario,
		Index:    r.FailedStep,
		Name:     r.Steps[r.FailedStep].Name,
		Err:      r.Cause,
	}
}

// Driver runs scenarios against page objects. A Driver holds no per-run
// state and is safe for concurrent use; scenarios sharing a session should
// still run one at a time.
type Driver struct {
	timeout time.Duration
	poll    time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
	runID   func() string
}

// NewDriver returns a driver with the given options applied over the
// defaults (5s timeout, 50ms poll interval).
func NewDriver(opts ...Option) *Driver {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &Driver{
		timeout: defaultTimeout,
		poll:    defaultPollInterval,
		logger:  o.logger,
		tracer:  o.tracer,
		runID:   o.runID,
	}
	if o.timeout > 0 {
		d.timeout = o.timeout
	}
	if o.pollInterval > 0 {
		d.poll = max(o.pollInterval, minPollInterval)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	if d.runID == nil {
		d.runID = newRunID
	}
	return d
}

func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Timeout returns the default assertion budget.
func (d *Driver) Timeout() time.Duration { return d.timeout }

// PollInterval returns the default assertion poll interval.
func (d *Driver) PollInterval() time.Duration { return d.poll }

// Run executes the scenario's steps in order and stops at the first
// failure. It never panics on a failing step; the outcome is in the Result.
func (d *Driver) Run(ctx context.Context, sc *Scenario) Result {
	res := Result{
		RunID:      d.runID(),
		Status:     StatusPassed,
		FailedStep: -1,
		Started:    time.Now(),
	}
	if sc != nil {
		res.Scenario = sc.name
	}

	ctx, span := d.tracer.Start(ctx, "playbook.scenario", trace.WithAttributes(
		attribute.String("playbook.scenario", res.Scenario),
		attribute.String("playbook.run_id", res.RunID),
	))
	defer span.End()

	log := d.logger.With("scenario", res.Scenario, "run_id", res.RunID)

	if err := sc.Validate(); err != nil {
		res.Status = StatusFailed
		res.Cause = err
		var se *StepError
		if errors.As(err, &se) {
			res.FailedStep = se.Index
			res.Cause = se.Err
			res.Steps = make([]StepReport, 0, sc.Len())
			for i, s := range sc.steps {
				res.Steps = append(res.Steps, skippedReport(i, s))
			}
			res.Steps[se.Index].Status = StatusFailed
		}
		return d.finish(span, log, res)
	}

	res.Steps = make([]StepReport, 0, len(sc.steps))
	for i, s := range sc.steps {
		if ctx.Err() != nil {
			res.Status = StatusFailed
			res.FailedStep = i
			res.Cause = fmt.Errorf("playbook: run: %w", context.Cause(ctx))
			res.Steps = append(res.Steps, failedReport(i, s))
			d.skipRest(&res, sc, i+1)
			break
		}

		report, err := d.runStep(ctx, s, i, log)
		res.Steps = append(res.Steps, report)
		if err != nil {
			res.Status = StatusFailed
			res.FailedStep = i
			res.Cause = err
			res.Observed = report.Observed
			d.skipRest(&res, sc, i+1)
			break
		}
	}

	return d.finish(span, log, res)
}

func (d *Driver) runStep(ctx context.Context, s Step, i int, log *slog.Logger) (StepReport, error) {
	report := StepReport{Index: i, Kind: s.kind, Name: s.name, Status: StatusPassed}

	ctx, span := d.tracer.Start(ctx, s.name, trace.WithAttributes(
		attribute.Int("playbook.step.index", i),
		attribute.String("playbook.step.kind", s.kind.String()),
	))
	defer span.End()

	start := time.Now()
	var err error
	switch s.kind {
	case KindAction:
		report.Attempts = 1
		if err = s.effect(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
				err = fmt.Errorf("playbook: run: %w", context.Cause(ctx))
			case !IsSessionError(err):
				err = &ActionError{Name: s.name, Err: err}
			}
		}
	case KindAssertion:
		timeout, poll := resolveWait(s.timeout, s.poll, d.timeout, d.poll)
		var wr WaitResult
		wr, err = WaitUntil(ctx, s.matcher, timeout, poll)
		report.Attempts = wr.Attempts
		report.Observed = wr.Observed
		if err == nil {
			err = wr.Err()
		}
	}
	report.Elapsed = time.Since(start)

	if err != nil {
		report.Status = StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, firstLine(err))
		log.Debug("step failed", "step", i, "kind", s.kind.String(), "name", s.name, "elapsed", report.Elapsed, "error", firstLine(err))
		return report, err
	}
	log.Debug("step passed", "step", i, "kind", s.kind.String(), "name", s.name, "elapsed", report.Elapsed, "attempts", report.Attempts)
	return report, nil
}

func (d *Driver) skipRest(res *Result, sc *Scenario, from int) {
	for i := from; i < len(sc.steps); i++ {
		res.Steps = append(res.Steps, skippedReport(i, sc.steps[i]))
	}
}

func (d *Driver) finish(span trace.Span, log *slog.Logger, res Result) Result {
	res.Elapsed = time.Since(res.Started)
	span.SetAttributes(attribute.String("playbook.status", res.Status.String()))

	if res.Status == StatusPassed {
		log.Info("scenario passed", "steps", len(res.Steps), "elapsed", res.Elapsed)
		return res
	}

	span.RecordError(res.Cause)
	span.SetStatus(codes.Error, firstLine(res.Cause))
	log.Warn("scenario failed", "step", res.FailedStep, "elapsed", res.Elapsed, "error", firstLine(res.Cause))
	return res
}

// Test runs the scenario with t's context and fails t if it does not pass.
func (d *Driver) Test(t testing.TB, sc *Scenario) Result {
	t.Helper()
	res := d.Run(t.Context(), sc)
	if !res.Passed() {
		t.Fatalf("%v", res.Err())
	}
	return res
}

func skippedReport(i int, s Step) StepReport {
	return StepReport{Index: i, Kind: s.kind, Name: s.name, Status: StatusSkipped}
}

func failedReport(i int, s Step) StepReport {
	return StepReport{Index: i, Kind: s.kind, Name: s.name, Status: StatusFailed}
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}
