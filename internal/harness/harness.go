package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fieldreg/internal/engine"
	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/registry"
	"github.com/roach88/fieldreg/internal/store"
	"github.com/roach88/fieldreg/internal/testutil"
)

// Harness runs one scenario against a real engine with a deterministic
// height clock and a fixed correlation token.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.ScenarioClock
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Create fresh in-memory journal and engine
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps and check expect clauses
// 4. Evaluate assertions against the trace and the registry
//
// The returned error covers infrastructure failures and failed setup. A
// scenario whose expectations do not hold returns a Result with Pass false.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewScenarioClock(scenario.StartHeight)
	eng := engine.New(st, identity.ContextResolver{Heights: clock},
		engine.WithTokens(testutil.NewFixedTokenGenerator(scenario.Token)),
		engine.WithLogger(logger))

	h := &Harness{
		scenario: scenario,
		store:    st,
		engine:   eng,
		clock:    clock,
		logger:   logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.executeFlow(ctx, result)

	actx := &AssertionContext{Registry: eng.Registry()}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	result.Stats = eng.Registry().Stats()

	return result, nil
}

// execute runs one step: it moves the clock, runs the action as the step's
// caller and appends the journaled records to the trace.
func (h *Harness) execute(ctx context.Context, step Step, result *Result) (engine.Outcome, error) {
	if step.Height > 0 {
		h.clock.Set(step.Height)
	} else {
		h.clock.Advance()
	}
	ctx = identity.WithCaller(ctx, step.caller(h.scenario))

	out, err := h.engine.Execute(ctx, ir.ActionRef(step.Invoke), ir.Args(step.Args))
	if out.Invocation.ID != "" {
		inv := out.Invocation
		result.AddInvocationTrace(string(inv.Action), string(inv.Caller), inv.Height, inv.Args, inv.Seq)
	}
	if out.Completion.ID != "" {
		comp := out.Completion
		result.AddCompletionTrace(comp.OutputCase, comp.Code, comp.Result, comp.Seq)
	}
	return out, err
}

// executeSetup runs all setup steps. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, result *Result) error {
	for i, step := range h.scenario.Setup {
		out, err := h.execute(ctx, step, result)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
		h.logger.Debug("setup step completed",
			"step", i,
			"action", step.Invoke,
			"invocation_id", out.Invocation.ID,
			"completion_id", out.Completion.ID,
		)
	}
	return nil
}

// executeFlow runs all flow steps and checks their expect clauses.
//
// A registry rejection is a normal outcome: it is journaled and compared
// with the expect clause. A request the engine refuses before journaling
// (unknown action, bad args) is recorded as a failure and the flow goes on.
func (h *Harness) executeFlow(ctx context.Context, result *Result) {
	for i, step := range h.scenario.Flow {
		out, err := h.execute(ctx, step, result)

		var rejected *registry.Error
		if err != nil && !errors.As(err, &rejected) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Invoke, err))
			continue
		}

		for _, msg := range checkExpect(i, step, out.Completion) {
			result.AddError(msg)
		}

		h.logger.Debug("flow step completed",
			"step", i,
			"action", step.Invoke,
			"invocation_id", out.Invocation.ID,
			"output_case", out.Completion.OutputCase,
		)
	}
}

// checkExpect compares a completion with the step's expect clause. Steps
// without one must succeed.
func checkExpect(i int, step Step, comp ir.Completion) []string {
	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{Case: ir.CaseSuccess}
	}

	if comp.OutputCase != expect.Case {
		return []string{fmt.Sprintf("flow[%d] %s: expected case %s, got %s %v",
			i, step.Invoke, expect.Case, comp.OutputCase, comp.Result)}
	}

	var errs []string
	for _, key := range ir.SortedKeys(expect.Result) {
		actual, ok := comp.Result[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: result field %q missing", i, step.Invoke, key))
			continue
		}
		if !valuesEqual(expect.Result[key], actual) {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: result field %q = %v, want %v",
				i, step.Invoke, key, actual, expect.Result[key]))
		}
	}
	return errs
}
