// Package harness runs YAML scenarios against a roster store and checks the
// outcome of every step.
//
// A scenario lists setup steps (which must all succeed), the steps under
// test with optional expectations, and assertions over the final record set.
// Each run uses a fresh in-memory store, a discard logger and sequential
// operation IDs, so traces are reproducible and can be compared against
// golden files.
//
// Steps go through form.Controller, the same path the CLI uses, so a
// scenario observes the text parsing and error classification an operator
// would.
//
// Example:
//
//	name: duplicate-add
//	description: adding an existing id is rejected
//	setup:
//	  - op: add
//	    args: {id: S1, name: Ann}
//	steps:
//	  - op: add
//	    args: {id: " S1 ", name: Other}
//	    expect: {outcome: duplicate_key}
//	assertions:
//	  - type: record_count
//	    count: 1
package harness
