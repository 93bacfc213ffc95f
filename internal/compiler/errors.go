package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
)

// Compile error codes (E200-E299)
const (
	// Syntax errors (E200-E209)
	ErrSyntax        = "E200" // malformed rule, fact or term
	ErrMissingArrow  = "E201" // rule has no '<=>' or '==>'
	ErrUnexpectedEOF = "E202" // input ended inside a rule or term

	// Definition errors (E210-E219)
	ErrNoHeads         = "E210" // rule has no head patterns
	ErrUnboundVariable = "E211" // guard/body variable not bound by a head
	ErrTypeMismatch    = "E212" // boolean where a value is required or vice versa
	ErrDuplicateRule   = "E213" // two rules share a name
	ErrNonGroundFact   = "E214" // fact contains a variable or expression
	ErrWildcardInExpr  = "E215" // '_' used in a guard or body
	ErrSentinelArgs    = "E216" // true/false/fail with arguments

	// Format errors (E220-E229)
	ErrTabularColumns = "E220" // tabular line without exactly four columns
	ErrTabularCell    = "E221" // tabular cell item of the wrong shape
	ErrCUE            = "E222" // CUE evaluation or shape error
	ErrUnknownFormat  = "E223" // unrecognised program format
)

// CompileError reports a parse or definition error with its position.
// Line and Column are 1-based; zero means unknown.
type CompileError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d: [%s] %s", e.source(), e.Line, e.Column, e.Code, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: [%s] %s", e.source(), e.Line, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: [%s] %s", e.source(), e.Code, e.Message)
	}
}

func (e *CompileError) source() string {
	if e.Source == "" {
		return "<input>"
	}
	return e.Source
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// CompileErrorCode returns the code of a wrapped *CompileError, or "".
func CompileErrorCode(err error) string {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, source string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Code: ErrCUE, Message: err.Error(), Source: source}
	}

	first := errs[0]
	ce := &CompileError{Code: ErrCUE, Message: first.Error(), Source: source}
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		ce.Line = positions[0].Line()
		ce.Column = positions[0].Column()
		if name := positions[0].Filename(); name != "" {
			ce.Source = name
		}
	}
	return ce
}
