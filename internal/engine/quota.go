package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts rule firings in a run and enforces an optional
// maximum steps limit.
//
// Each run has its own QuotaEnforcer instance. The quota is checked before
// every firing.
//
// The engine performs no termination analysis: a rule set with an infinite
// chain of unconditional firings simply does not terminate. The quota is an
// opt-in guard against that, off by default (maxSteps <= 0).
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed steps; <= 0 means unlimited
	current  int // Current step count
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit <= 0 disables enforcement; firings are still counted.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
// This must be called before each firing is applied.
func (q *QuotaEnforcer) Check(runID string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			RunID: runID,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// Unlimited reports whether the enforcer has no limit.
func (q *QuotaEnforcer) Unlimited() bool {
	return q.maxSteps <= 0
}

// StepsExceededError is returned when a run exceeds the max steps quota.
// It terminates the run; the CLI prints no store.
type StepsExceededError struct {
	RunID string // The run that exceeded the quota
	Steps int    // Number of steps attempted
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("run exceeded max steps quota: %d steps > %d limit", e.Steps, e.Limit)
	}
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.RunID, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
