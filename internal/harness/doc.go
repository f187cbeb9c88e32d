// Package harness runs registry conformance scenarios.
//
// A scenario drives the real engine over a fresh in-memory journal and
// checks the journaled outcomes, the trace and the final registry state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	token: "scenario-token"
//	principal: ST1...            # default caller
//	start_height: 100
//	setup:
//	  - invoke: Equipment.register
//	    args: { model: "EdgeRouter X" }
//	flow:
//	  - invoke: Equipment.setStatus
//	    as: ST2...
//	    height: 150
//	    args: { equipment_id: 1, status: decommissioned }
//	    expect:
//	      case: Unauthorized
//	      result: { caller: ST2... }
//	assertions:
//	  - type: trace_contains
//	    action: Equipment.setStatus
//	    args: { status: decommissioned }
//	  - type: equipment_state
//	    equipment_id: 1
//	    expect: { status: active }
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - equipment_state: final equipment fields match
//   - history_count: an equipment has exactly N ownership transfers
//   - maintenance_count: an equipment has exactly N maintenance records
//
// # Deterministic Testing
//
// Every invocation carries the scenario token, and block heights come from
// a testutil.ScenarioClock that starts at start_height and advances once
// per step unless the step pins a height. Identical scenarios therefore
// journal byte-identical traces, which are compared to golden files under
// testdata/golden.
package harness
