package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldreg/internal/ir"
)

func registerStep() Step {
	return Step{
		Invoke: string(ir.ActionRegister),
		Args:   map[string]any{"model": "EdgeRouter X", "coverage_radius_meters": 5000},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Token:       "test-token-minimal",
		Principal:   ownerP,
		Flow:        []Step{registerStep()},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Action: string(ir.ActionRegister)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2)
	inv, comp := result.Trace[0], result.Trace[1]
	assert.Equal(t, EventInvocation, inv.Type)
	assert.Equal(t, ownerP, inv.Caller)
	assert.Equal(t, int64(1), inv.Height)
	assert.Equal(t, int64(1), inv.Seq)
	assert.Equal(t, EventCompletion, comp.Type)
	assert.Equal(t, ir.CaseSuccess, comp.OutputCase)
	assert.Equal(t, ir.Args{"equipment_id": int64(1)}, comp.Result)
	assert.Equal(t, 1, result.Stats.Equipment)
}

func TestRun_HeightsAdvanceAndPin(t *testing.T) {
	status := func(height int64) Step {
		return Step{
			Invoke: string(ir.ActionSetStatus),
			Height: height,
			Args:   map[string]any{"equipment_id": 1, "status": "maintenance"},
		}
	}
	scenario := &Scenario{
		Name:        "heights",
		Description: "heights",
		Principal:   ownerP,
		StartHeight: 100,
		Setup:       []Step{registerStep()},
		Flow:        []Step{status(0), status(500), status(0)},
		Assertions:  []Assertion{{Type: AssertTraceCount, Action: string(ir.ActionSetStatus), Count: 3}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	var heights []int64
	for _, ev := range result.Trace {
		if ev.Type == EventInvocation {
			heights = append(heights, ev.Height)
		}
	}
	assert.Equal(t, []int64{101, 102, 500, 501}, heights)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "expects the wrong outcome",
		Principal:   ownerP,
		Setup:       []Step{registerStep()},
		Flow: []Step{
			{
				Invoke: string(ir.ActionSetStatus),
				As:     otherQ,
				Args:   map[string]any{"equipment_id": 1, "status": "decommissioned"},
			},
			{
				Invoke: string(ir.ActionAddMaintenance),
				Args:   map[string]any{"equipment_id": 1},
				Expect: &ExpectClause{Case: ir.CaseSuccess, Result: map[string]any{"maintenance_id": 2}},
			},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Action: string(ir.ActionRegister), Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected case Success, got Unauthorized")
	assert.Contains(t, result.Errors[1], `result field "maintenance_id" = 1, want 2`)
}

func TestRun_RefusedRequestIsReportedNotTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "refused",
		Description: "unknown action",
		Principal:   ownerP,
		Flow: []Step{
			{Invoke: "Equipment.delete", Args: map[string]any{"equipment_id": 1}},
			registerStep(),
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Action: "Equipment.delete", Count: 0}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[0] Equipment.delete")
	assert.Len(t, result.Trace, 2)
}

func TestRun_FailingSetupAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "setup touches missing equipment",
		Principal:   ownerP,
		Setup: []Step{
			{Invoke: string(ir.ActionSetStatus), Args: map[string]any{"equipment_id": 3, "status": "active"}},
		},
		Flow:       []Step{registerStep()},
		Assertions: []Assertion{{Type: AssertTraceCount, Action: string(ir.ActionRegister), Count: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 0")
	assert.Contains(t, err.Error(), "not found (404)")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/transfer_chain.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := (&TraceSnapshot{ScenarioName: scenario.Name, Trace: first.Trace}).Marshal()
	require.NoError(t, err)
	b, err := (&TraceSnapshot{ScenarioName: scenario.Name, Trace: second.Trace}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
