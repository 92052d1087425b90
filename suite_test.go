package playbook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cboone/playbook"
)

type fakeSession struct {
	*fakePage
	closed   bool
	closeErr error
}

func (s *fakeSession) Close() error {
	s.closed = true
	return s.closeErr
}

func TestRunAllSkipsAfterSessionLoss(t *testing.T) {
	d, _ := newTestDriver()
	page := newFakePage("ready")

	lost := playbook.NewScenario("lost",
		playbook.Action("crash", func(context.Context) error {
			page.setErr(playbook.SessionFailure("capture", errors.New("connection reset")))
			return nil
		}),
		playbook.Assertion("ready", playbook.TextVisible(page, "ready"), 0),
	)
	later := playbook.NewScenario("later", playbook.Assertion("ready", playbook.TextVisible(page, "ready"), 0))

	suite := d.RunAll(t.Context(),
		playbook.NewScenario("first", playbook.Assertion("ready", playbook.TextVisible(page, "ready"), 0)),
		lost,
		later,
	)

	if suite.Passed != 1 || suite.Failed != 1 || suite.Skipped != 1 {
		t.Fatalf("counts = %d/%d/%d", suite.Passed, suite.Failed, suite.Skipped)
	}
	if suite.OK() {
		t.Error("OK() = true for a failing suite")
	}

	skipped := suite.Results[2]
	if skipped.Status != playbook.StatusSkipped || skipped.Scenario != "later" {
		t.Errorf("third result = %+v", skipped)
	}
	if !playbook.IsSessionError(skipped.Cause) {
		t.Errorf("skip cause = %v, want the session error", skipped.Cause)
	}
	if len(skipped.Steps) != 1 || skipped.Steps[0].Status != playbook.StatusSkipped {
		t.Errorf("skipped steps = %+v", skipped.Steps)
	}
}

func TestRunAllContinuesAfterOrdinaryFailure(t *testing.T) {
	d, _ := newTestDriver()
	page := newFakePage("ready")

	suite := d.RunAll(t.Context(),
		playbook.NewScenario("fails", playbook.Assertion("missing", playbook.TextVisible(page, "missing"), 30*time.Millisecond)),
		playbook.NewScenario("passes", playbook.Assertion("ready", playbook.TextVisible(page, "ready"), 0)),
	)
	if suite.Failed != 1 || suite.Passed != 1 || suite.Skipped != 0 {
		t.Fatalf("counts = %d/%d/%d", suite.Passed, suite.Failed, suite.Skipped)
	}
}

func TestRunSuiteClosesSession(t *testing.T) {
	d, _ := newTestDriver()
	sess := &fakeSession{fakePage: newFakePage("Hello")}

	suite, err := playbook.RunSuite(t.Context(), d,
		func(context.Context) (*fakeSession, error) { return sess, nil },
		func(s *fakeSession) ([]*playbook.Scenario, error) {
			return []*playbook.Scenario{
				playbook.NewScenario("hello", playbook.Assertion("hello", playbook.TextVisible(s, "Hello"), 0)),
			}, nil
		},
	)
	if err != nil {
		t.Fatalf("RunSuite() error: %v", err)
	}
	if !suite.OK() || suite.Passed != 1 {
		t.Errorf("suite = %+v", suite)
	}
	if !sess.closed {
		t.Error("session was not closed")
	}
}

func TestRunSuiteClosesOnBuildError(t *testing.T) {
	d, _ := newTestDriver()
	sess := &fakeSession{fakePage: newFakePage(""), closeErr: errors.New("already gone")}
	buildErr := errors.New("bad script")

	_, err := playbook.RunSuite(t.Context(), d,
		func(context.Context) (*fakeSession, error) { return sess, nil },
		func(*fakeSession) ([]*playbook.Scenario, error) { return nil, buildErr },
	)
	if !errors.Is(err, buildErr) {
		t.Errorf("RunSuite() error = %v, want build error", err)
	}
	if !errors.Is(err, sess.closeErr) {
		t.Errorf("RunSuite() error = %v, want close error joined", err)
	}
	if !sess.closed {
		t.Error("session was not closed")
	}
}

func TestRunSuiteOpenFailure(t *testing.T) {
	d, _ := newTestDriver()
	_, err := playbook.RunSuite(t.Context(), d,
		func(context.Context) (*fakeSession, error) { return nil, errors.New("no browser") },
		func(*fakeSession) ([]*playbook.Scenario, error) {
			t.Fatal("build called without a session")
			return nil, nil
		},
	)
	if !playbook.IsSessionError(err) {
		t.Fatalf("RunSuite() error = %v, want *SessionError", err)
	}
}

func TestIndependentSessionsRunConcurrently(t *testing.T) {
	d, _ := newTestDriver()

	var wg sync.WaitGroup
	results := make([]playbook.Result, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page := newFakePage("")
			results[i] = d.Run(t.Context(), playbook.NewScenario("parallel",
				playbook.Action("type", func(ctx context.Context) error { return page.Type(ctx, "done") }),
				playbook.Assertion("done", playbook.TextVisible(page, "done"), 0),
			))
		}()
	}
	wg.Wait()

	for i, r := range results {
		if !r.Passed() {
			t.Errorf("scenario %d failed: %v", i, r.Err())
		}
	}
}
