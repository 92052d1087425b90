package playbook

import (
	"context"
	"errors"
	"fmt"
)

// SuiteResult collects the results of scenarios that shared one session.
type SuiteResult struct {
	Results []Result
	Passed  int
	Failed  int
	Skipped int
}

// OK reports whether every scenario passed.
func (s SuiteResult) OK() bool {
	return s.Failed == 0 && s.Skipped == 0
}

func (s *SuiteResult) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
}

// RunAll runs scenarios one after another against a shared session. Once a
// scenario fails because the session is gone, the remaining scenarios are
// reported as skipped with the same cause.
func (d *Driver) RunAll(ctx context.Context, scenarios ...*Scenario) SuiteResult {
	var suite SuiteResult
	var lost error
	for _, sc := range scenarios {
		if lost != nil {
			suite.add(d.skipped(sc, lost))
			continue
		}
		res := d.Run(ctx, sc)
		suite.add(res)
		if res.Status == StatusFailed && IsSessionError(res.Cause) {
			lost = res.Cause
			d.logger.Warn("session lost, skipping remaining scenarios", "scenario", res.Scenario, "error", firstLine(lost))
		}
	}
	return suite
}

func (d *Driver) skipped(sc *Scenario, cause error) Result {
	res := Result{RunID: d.runID(), Status: StatusSkipped, FailedStep: -1, Cause: cause}
	if sc == nil {
		return res
	}
	res.Scenario = sc.name
	res.Steps = make([]StepReport, len(sc.steps))
	for i, s := range sc.steps {
		res.Steps[i] = skippedReport(i, s)
	}
	return res
}

// RunSuite opens one session, builds scenarios against it and runs them in
// order. The session is closed on every path, including a failing build or
// a cancelled context; a close failure is joined into the returned error.
//
// The returned error reports setup and teardown problems only. Scenario
// failures are in the SuiteResult.
func RunSuite[S Session](ctx context.Context, d *Driver, open func(context.Context) (S, error), build func(S) ([]*Scenario, error)) (suite SuiteResult, err error) {
	sess, err := open(ctx)
	if err != nil {
		return suite, SessionFailure("open", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("playbook: session: close: %w", cerr))
		}
	}()

	scenarios, err := build(sess)
	if err != nil {
		return suite, fmt.Errorf("playbook: build scenarios: %w", err)
	}

	return d.RunAll(ctx, scenarios...), nil
}
