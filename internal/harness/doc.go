// Package harness runs Field-of-Play scenarios.
//
// A scenario is a YAML file: a group of athletes, then a list of steps
// (inputs, virtual time advances and state checks), then assertions on
// the notifications the engine published. Each scenario runs against a
// fresh engine with an in-memory repository and a manual scheduler, so
// delayed work (the reversal window, the decision display, clock alarms)
// only happens when a step advances time.
//
// The run produces a trace: one line per input followed by one indented
// line per notification and sound it caused. Traces are compared against
// golden files under testdata/golden.
//
// Example:
//
//	name: single-lift
//	description: one good lift
//	group: A
//	athletes:
//	  - {id: a, start_number: 1, requested: 100}
//	steps:
//	  - input: SwitchGroup
//	    data: {group_id: A}
//	  - input: StartLifting
//	  - input: TimeStarted
//	  - input: DecisionUpdate
//	    data: {ref: 0, vote: good}
//	  - advance: 3s
//	  - expect: {state: DECISION_VISIBLE}
//	assertions:
//	  - {type: output_count, kind: Decision, count: 1}
package harness
