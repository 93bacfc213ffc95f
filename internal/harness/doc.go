// Package harness provides conformance testing for CHR programs.
//
// The harness compiles a rule program, runs it over a set of facts with a
// deterministic run ID, journals every firing to an in-memory SQLite
// journal, and validates the outcome against the scenario's assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: ../programs/counting.chr   # or program: with inline text
//	format: auto                      # optional: inline, tabular, cue
//	facts:
//	  - upto(5)
//	strategy: worklist                # optional: batch
//	mode: first                       # optional: exhaustive
//	max_steps: 100                    # optional quota
//	expect:
//	  error: QUOTA_EXCEEDED           # optional expected failure code
//	assertions:
//	  - type: store_equals
//	    constraints: [counted(5)]
//	  - type: trace_count
//	    rule: step
//	    count: 5
//	  - type: final_state
//	    table: runs
//	    expect: { status: finished }
//
// Paths are relative to the scenario file. When no facts are given the
// program's own facts (CUE programs) are used.
//
// # Assertion Types
//
//   - store_equals: the final store holds exactly the listed constraints
//   - store_contains: every listed constraint is in the final store
//   - store_excludes: none of the listed constraints is in the final store
//   - trace_contains: a firing of rule with matching bindings (subset match)
//   - trace_order: rules first fire in the listed order
//   - trace_count: rule fires exactly count times
//   - final_state: a journal table row matches the expected columns
//
// # Deterministic Testing
//
// Run IDs are "<scenario name>-1" and the engine is deterministic, so the
// same scenario always produces the same trace. RunWithGolden compares the
// trace against testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counting.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
