package harness

import (
	"errors"
	"fmt"
	"io/fs"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// SuiteResult contains results from running a set of scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents one scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Name         string   `json:"name,omitempty"`
	ScenarioPath string   `json:"scenario_path"`
	Errors       []string `json:"errors"`
}

// Pass reports whether every scenario passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

// RunSuite runs the scenario at path, or every scenario in the directory
// at path, and collects the results.
//
// For each scenario file:
// 1. Load and validate it
// 2. Run it via Run
// 3. Record pass or failure
func RunSuite(path string) (*SuiteResult, error) {
	files, err := ScenarioFiles(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ScenarioNotFoundError{Path: path}
		}
		return nil, err
	}

	result := &SuiteResult{}
	for _, file := range files {
		result.TotalScenarios++

		scenario, err := LoadScenario(file)
		if err != nil {
			result.fail("", file, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.fail(scenario.Name, file, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			result.fail(scenario.Name, file, runResult.Errors...)
			continue
		}

		result.Passed++
	}

	return result, nil
}

func (r *SuiteResult) fail(name, path string, errs ...string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{
		Name:         name,
		ScenarioPath: path,
		Errors:       errs,
	})
}

