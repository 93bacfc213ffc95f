package harness

// TraceEvent is one firing in a scenario trace.
// Constraints are rendered in fact-file syntax.
type TraceEvent struct {
	Seq      int               `json:"seq"`
	Rule     string            `json:"rule"`
	Bindings map[string]string `json:"bindings,omitempty"`
	Kept     []string          `json:"kept,omitempty"`
	Removed  []string          `json:"removed,omitempty"`
	Added    []string          `json:"added,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and all assertions hold.
	Pass bool `json:"pass"`

	// RunID identifies the engine run. Empty if the program failed to compile.
	RunID string `json:"run_id,omitempty"`

	// Trace contains all firings in seq order.
	Trace []TraceEvent `json:"trace"`

	// Store is the final store, most recent first.
	// Empty if the run failed.
	Store []string `json:"store"`

	Steps  int `json:"steps"`
	Rounds int `json:"rounds"`

	// ErrorCode is the compile or runtime error code of a failed run.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Store:  []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddFiringTrace appends a firing to the trace.
func (r *Result) AddFiringTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
