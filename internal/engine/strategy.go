package engine

import "fmt"

// Strategy selects how the engine drives the store to a fixpoint.
type Strategy string

const (
	// StrategyWorklist introduces constraints one at a time and tries every
	// rule with the newly introduced constraint in a head slot (default).
	// Products are introduced depth-first before the parent continues.
	StrategyWorklist Strategy = "worklist"

	// StrategyBatch scans the full rule set against the full store in
	// passes, stopping after a pass in which nothing fired.
	// Re-examines the whole store every pass.
	StrategyBatch Strategy = "batch"
)

// FireMode selects how many matches of one rule fire before moving on.
type FireMode string

const (
	// FireFirst commits the first successful match per (active constraint,
	// rule) attempt. If the active constraint survives, it goes back to the
	// first rule (default).
	FireFirst FireMode = "first"

	// FireExhaustive keeps firing a rule, re-matching against the updated
	// store after each firing, until it no longer matches. A sweep over the
	// rules in which anything fired is followed by another.
	FireExhaustive FireMode = "exhaustive"
)

// ParseStrategy validates a strategy name.
// Empty selects the default worklist strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyWorklist, StrategyBatch:
		return Strategy(s), nil
	case "":
		return StrategyWorklist, nil
	default:
		return "", fmt.Errorf("invalid strategy %q: must be worklist or batch", s)
	}
}

// ParseFireMode validates a fire mode name.
// Empty selects the default first-success mode.
func ParseFireMode(s string) (FireMode, error) {
	switch FireMode(s) {
	case FireFirst, FireExhaustive:
		return FireMode(s), nil
	case "":
		return FireFirst, nil
	default:
		return "", fmt.Errorf("invalid fire mode %q: must be first or exhaustive", s)
	}
}
