package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fieldreg/internal/ir"
)

// Scenario defines a registry conformance scenario.
// A scenario runs a flow of actions against a fresh registry and asserts on
// the resulting journal trace and final registry state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Token is the fixed correlation token stamped on every invocation.
	// Defaults to "test-token-default".
	Token string `yaml:"token,omitempty"`

	// Principal is the caller of steps that do not name one with "as".
	Principal string `yaml:"principal,omitempty"`

	// StartHeight is the block height before the first step. Each step
	// without an explicit height advances it by one.
	StartHeight int64 `yaml:"start_height,omitempty"`

	// Setup contains steps run before the flow. They must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main test flow, optionally with expected outcomes.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and registry state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action invocation.
type Step struct {
	// Invoke is the action reference, e.g. "Equipment.register".
	Invoke string `yaml:"invoke"`

	// As overrides the scenario principal for this step.
	As string `yaml:"as,omitempty"`

	// Height pins the block height for this step.
	Height int64 `yaml:"height,omitempty"`

	// Args contains the action arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected completion. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// caller returns the principal the step runs as.
func (s Step) caller(sc *Scenario) ir.Principal {
	if s.As != "" {
		return ir.Principal(s.As)
	}
	return ir.Principal(sc.Principal)
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected output case: Success, NotFound or Unauthorized.
	Case string `yaml:"case"`

	// Result holds expected result fields. Subset match.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the action reference (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected invocation args (trace_contains). Subset match.
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (trace_count,
	// history_count, maintenance_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// EquipmentID selects the equipment (equipment_state, history_count,
	// maintenance_count).
	EquipmentID int64 `yaml:"equipment_id,omitempty"`

	// Expect contains expected equipment fields (equipment_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains    = "trace_contains"
	AssertTraceOrder       = "trace_order"
	AssertTraceCount       = "trace_count"
	AssertEquipmentState   = "equipment_state"
	AssertHistoryCount     = "history_count"
	AssertMaintenanceCount = "maintenance_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ScenarioFiles returns the scenario files at path: the file itself, or
// every .yaml and .yml file directly inside a directory, sorted by name.
func ScenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(s, fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(s, fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(s *Scenario, where string, step Step) error {
	if step.Invoke == "" {
		return fmt.Errorf("%s: invoke is required", where)
	}
	if step.Args == nil {
		return fmt.Errorf("%s: args is required (use empty map if no args)", where)
	}
	if step.caller(s) == "" {
		return fmt.Errorf("%s: no caller (set principal or as)", where)
	}
	if step.Height < 0 {
		return fmt.Errorf("%s: height must be non-negative", where)
	}
	if step.Expect != nil {
		switch step.Expect.Case {
		case ir.CaseSuccess, ir.CaseNotFound, ir.CaseUnauthorized:
		case "":
			return fmt.Errorf("%s.expect: case is required", where)
		default:
			return fmt.Errorf("%s.expect: unknown case %q", where, step.Expect.Case)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertEquipmentState:
		if a.EquipmentID == 0 {
			return fmt.Errorf("assertions[%d]: equipment_id is required for equipment_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for equipment_state", index)
		}
	case AssertHistoryCount, AssertMaintenanceCount:
		if a.EquipmentID == 0 {
			return fmt.Errorf("assertions[%d]: equipment_id is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
