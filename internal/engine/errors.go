package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a fatal error detected while a run is in progress.
//
// Runtime errors include:
//   - Guard evaluation failure: a guard hit an undefined operation
//     (division by zero, arithmetic on an atom, comparing an int with an atom)
//   - Body evaluation failure: an arithmetic body argument could not be computed
//   - Rule failure: a rule body produced the `false`/`fail` sentinel
//   - Quota exceeded: the run exceeded its max steps limit
//
// Every runtime error aborts the whole run. There is no partial recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run. Filled in by the engine.
	RunID string

	// Rule names the rule being matched or fired.
	Rule string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeGuardEval indicates a guard could not be evaluated.
	ErrCodeGuardEval RuntimeErrorCode = "GUARD_EVAL"

	// ErrCodeBodyEval indicates a body argument could not be evaluated.
	ErrCodeBodyEval RuntimeErrorCode = "BODY_EVAL"

	// ErrCodeRuleFailed indicates a rule body produced false or fail.
	ErrCodeRuleFailed RuntimeErrorCode = "RULE_FAILED"

	// ErrCodeQuotaExceeded indicates the run exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.RunID != "" && e.Rule != "" {
		return fmt.Sprintf("%s: %s (run=%s, rule=%s)", e.Code, msg, e.RunID, e.Rule)
	}
	if e.Rule != "" {
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, msg, e.Rule)
	}
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, msg, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsGuardError returns true if the error is a guard evaluation error.
// Uses errors.As to handle wrapped errors.
func IsGuardError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeGuardEval
	}
	return false
}

// IsBodyError returns true if the error is a body evaluation error.
func IsBodyError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeBodyEval
	}
	return false
}

// IsRuleFailure returns true if a rule body produced false or fail.
func IsRuleFailure(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeRuleFailed
	}
	return false
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// ErrorCode returns the runtime error code carried by err, or "" if err is
// not a runtime error. Used by the journal to classify failed runs.
func ErrorCode(err error) string {
	var re *RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var se *StepsExceededError
	if errors.As(err, &se) {
		return string(ErrCodeQuotaExceeded)
	}
	return ""
}

// NewGuardError creates a RuntimeError for a failed guard evaluation.
func NewGuardError(rule, guard string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeGuardEval,
		Message: "guard evaluation failed",
		Rule:    rule,
		Details: map[string]string{"guard": guard},
		Err:     cause,
	}
}

// NewBodyError creates a RuntimeError for a failed body instantiation.
func NewBodyError(rule, term string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBodyEval,
		Message: "body evaluation failed",
		Rule:    rule,
		Details: map[string]string{"term": term},
		Err:     cause,
	}
}

// NewRuleFailure creates a RuntimeError for a rule whose body failed.
func NewRuleFailure(rule, bindings string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRuleFailed,
		Message: "rule body failed",
		Rule:    rule,
		Details: map[string]string{"bindings": bindings},
	}
}

// withRunID stamps the run ID onto a runtime error, if err carries one.
func withRunID(err error, runID string) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.RunID == "" {
		re.RunID = runID
	}
	var se *StepsExceededError
	if errors.As(err, &se) && se.RunID == "" {
		se.RunID = runID
	}
	return err
}
