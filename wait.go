package playbook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// observationHistory is how many observations a TimeoutError keeps.
const observationHistory = 3

// WaitResult is the outcome of a WaitUntil call. It lives only as long as
// the step that produced it.
type WaitResult struct {
	Satisfied   bool
	Elapsed     time.Duration
	Attempts    int
	Timeout     time.Duration
	Description string

	// Observed is the value seen by the final evaluation.
	Observed string

	recent []string
}

// Recent returns the last few observations, oldest first.
func (r WaitResult) Recent() []string {
	cp := make([]string, len(r.recent))
	copy(cp, r.recent)
	return cp
}

// Err returns nil when the condition held, and otherwise a *TimeoutError
// describing the last observations.
func (r WaitResult) Err() error {
	if r.Satisfied {
		return nil
	}
	return &TimeoutError{
		Description: r.Description,
		Timeout:     r.Timeout,
		Elapsed:     r.Elapsed,
		Attempts:    r.Attempts,
		Observed:    r.Observed,
		Recent:      r.Recent(),
	}
}

// WaitUntil evaluates m until it matches or timeout elapses.
//
// The first evaluation happens immediately; when it matches, WaitUntil
// returns without sleeping. Otherwise it sleeps pollInterval (or whatever
// remains of the budget, if less) between evaluations. An unsatisfied wait
// is not an error: inspect WaitResult.Satisfied or call WaitResult.Err.
//
// The returned error is non-nil only when the arguments are invalid, when m
// itself fails (a *PredicateError, or the page's *SessionError unchanged), or
// when ctx is cancelled.
func WaitUntil(ctx context.Context, m Matcher, timeout, pollInterval time.Duration) (WaitResult, error) {
	res := WaitResult{Timeout: timeout, Description: "matcher condition"}

	if m == nil {
		return res, errors.New("playbook: wait: nil matcher")
	}
	if timeout <= 0 {
		return res, fmt.Errorf("playbook: wait: timeout must be positive, got %v", timeout)
	}
	if pollInterval <= 0 || pollInterval >= timeout {
		return res, fmt.Errorf("playbook: wait: poll interval %v must be positive and below timeout %v", pollInterval, timeout)
	}

	start := time.Now()
	for {
		match, err := m(ctx)
		res.Attempts++
		res.Elapsed = time.Since(start)
		if match.Description != "" {
			res.Description = match.Description
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("playbook: wait: %w", context.Cause(ctx))
			}
			if IsSessionError(err) {
				return res, err
			}
			return res, &PredicateError{Description: res.Description, Err: err}
		}

		res.Observed = match.Observed
		res.recent = appendRecent(res.recent, match.Observed, observationHistory)
		if match.OK {
			res.Satisfied = true
			return res, nil
		}

		if res.Elapsed >= timeout {
			return res, nil
		}

		timer := time.NewTimer(min(pollInterval, timeout-res.Elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("playbook: wait: %w", context.Cause(ctx))
		case <-timer.C:
		}
	}
}

// Require waits like WaitUntil and converts an unsatisfied wait into a
// *TimeoutError.
func Require(ctx context.Context, m Matcher, timeout, pollInterval time.Duration) error {
	res, err := WaitUntil(ctx, m, timeout, pollInterval)
	if err != nil {
		return err
	}
	return res.Err()
}

func appendRecent(recent []string, observed string, max int) []string {
	recent = append(recent, observed)
	if len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	return recent
}
