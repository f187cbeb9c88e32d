package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/registry"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s as %s %v\n", i+1, event.Action, event.Caller, event.Args)
			}
		}
	}

	return buf.String()
}

// AssertionContext carries what state assertions read.
type AssertionContext struct {
	Registry *registry.Service
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			if matchArgs(event.Args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		for _, expectedAction := range assertion.Actions {
			if event.Action == expectedAction && positions[expectedAction] == 0 {
				positions[expectedAction] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertEquipmentState checks the final fields of one piece of equipment
// using subset semantics. Field names are the JSON names of ir.Equipment.
func assertEquipmentState(reg *registry.Service, assertion Assertion) error {
	eq, err := reg.Get(assertion.EquipmentID)
	if err != nil {
		return &AssertionError{
			Type:     AssertEquipmentState,
			Expected: fmt.Sprintf("equipment %d to exist", assertion.EquipmentID),
			Actual:   err.Error(),
		}
	}

	fields, err := equipmentFields(eq)
	if err != nil {
		return fmt.Errorf("equipment_state: %w", err)
	}

	for _, key := range ir.SortedKeys(assertion.Expect) {
		actual, ok := fields[key]
		if !ok {
			return &AssertionError{
				Type:     AssertEquipmentState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("equipment has fields %v", ir.SortedKeys(fields)),
			}
		}
		if !valuesEqual(assertion.Expect[key], actual) {
			return &AssertionError{
				Type:     AssertEquipmentState,
				Expected: fmt.Sprintf("equipment %d field %q = %v", assertion.EquipmentID, key, assertion.Expect[key]),
				Actual:   fmt.Sprintf("equipment %d field %q = %v", assertion.EquipmentID, key, actual),
			}
		}
	}
	return nil
}

// assertHistoryCount checks the number of ownership transfers recorded for
// one piece of equipment.
func assertHistoryCount(reg *registry.Service, assertion Assertion) error {
	history, err := reg.OwnershipHistory(assertion.EquipmentID)
	if err != nil {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d transfers of equipment %d", assertion.Count, assertion.EquipmentID),
			Actual:   err.Error(),
		}
	}
	if len(history) != assertion.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d transfers of equipment %d", assertion.Count, assertion.EquipmentID),
			Actual:   fmt.Sprintf("%d transfers", len(history)),
		}
	}
	return nil
}

// assertMaintenanceCount checks the number of maintenance records for one
// piece of equipment.
func assertMaintenanceCount(reg *registry.Service, assertion Assertion) error {
	records, err := reg.MaintenanceHistory(assertion.EquipmentID)
	if err != nil {
		return &AssertionError{
			Type:     AssertMaintenanceCount,
			Expected: fmt.Sprintf("%d maintenance records for equipment %d", assertion.Count, assertion.EquipmentID),
			Actual:   err.Error(),
		}
	}
	if len(records) != assertion.Count {
		return &AssertionError{
			Type:     AssertMaintenanceCount,
			Expected: fmt.Sprintf("%d maintenance records for equipment %d", assertion.Count, assertion.EquipmentID),
			Actual:   fmt.Sprintf("%d records", len(records)),
		}
	}
	return nil
}

// equipmentFields flattens eq into its JSON fields.
func equipmentFields(eq ir.Equipment) (ir.Args, error) {
	data, err := json.Marshal(eq)
	if err != nil {
		return nil, err
	}
	return ir.DecodeArgs(data)
}

// matchArgs reports whether actual contains every expected field with an
// equal value.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	var args map[string]any
	switch a := actual.(type) {
	case ir.Args:
		args = a
	case map[string]any:
		args = a
	default:
		return false
	}
	for key, want := range expected {
		got, ok := args[key]
		if !ok || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a value written in a scenario with one produced by
// the registry. YAML integers, int64, uint64 and json.Number are all equal
// when they have the same canonical encoding.
func valuesEqual(expected, actual any) bool {
	a, errA := ir.MarshalCanonical(expected)
	b, errB := ir.MarshalCanonical(actual)
	if errA == nil && errB == nil {
		return bytes.Equal(a, b)
	}
	return reflect.DeepEqual(expected, actual)
}

// EvaluateAssertions runs all assertions and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertEquipmentState, AssertHistoryCount, AssertMaintenanceCount:
			if actx == nil || actx.Registry == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a registry", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertEquipmentState:
				err = assertEquipmentState(actx.Registry, assertion)
			case AssertHistoryCount:
				err = assertHistoryCount(actx.Registry, assertion)
			default:
				err = assertMaintenanceCount(actx.Registry, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
