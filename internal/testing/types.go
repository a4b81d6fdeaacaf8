package testing

import (
	"context"
	"time"

	"kliharness/internal/orchestrator"
)

// TestResult represents the result of test execution
type TestResult string

const (
	// ResultPassed indicates the test passed successfully
	ResultPassed TestResult = "PASSED"
	// ResultFailed indicates the test failed
	ResultFailed TestResult = "FAILED"
	// ResultSkipped indicates the test was skipped
	ResultSkipped TestResult = "SKIPPED"
	// ResultError indicates an error occurred during test execution
	ResultError TestResult = "ERROR"
)

// ExpandMode repeats a step over its participants.
type ExpandMode string

const (
	// ExpandNone runs the step once.
	ExpandNone ExpandMode = ""
	// ExpandEach runs the step once per participant, as {name}.
	ExpandEach ExpandMode = "each"
	// ExpandPairs runs the step once per unordered pair, as {first} and {second}.
	ExpandPairs ExpandMode = "pairs"
)

// TestConfiguration defines the overall test execution configuration
type TestConfiguration struct {
	// Timeout is the overall test execution timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Scenario filter for specific scenario execution
	Scenario string `yaml:"scenario,omitempty" json:"scenario,omitempty"`
	// Tags filter: a scenario runs when it carries any of them
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// FailFast stops execution on first failure
	FailFast bool `yaml:"fail_fast" json:"fail_fast"`
	// Verbose enables detailed output
	Verbose bool `yaml:"verbose" json:"verbose"`
	// Debug includes command output in the report
	Debug bool `yaml:"debug" json:"debug"`
	// ScenarioPath is the directory holding scenario definitions
	ScenarioPath string `yaml:"scenario_path,omitempty" json:"scenario_path,omitempty"`
	// ReportPath is the path to save detailed test reports
	ReportPath string `yaml:"report_path,omitempty" json:"report_path,omitempty"`
	// Output selects the reporter: text (default), quiet or json
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Reporter output formats.
const (
	OutputText  = "text"
	OutputQuiet = "quiet"
	OutputJSON  = "json"
)

// TestScenario defines a single test scenario
type TestScenario struct {
	// Name is the unique identifier for the scenario
	Name string `yaml:"name" json:"name"`
	// Description provides human-readable scenario description
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Tags select witness profiles and filter scenarios
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// Steps define the test execution steps
	Steps []TestStep `yaml:"steps" json:"steps"`
	// Cleanup defines teardown steps, run before the witnesses are stopped
	Cleanup []TestStep `yaml:"cleanup,omitempty" json:"cleanup,omitempty"`
	// Timeout for this specific scenario
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// TestStep defines a single step within a test scenario. Exactly one of Command,
// Probe and Wait is set.
type TestStep struct {
	// Name is the step identifier
	Name string `yaml:"name" json:"name"`
	// Description explains what the step does
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Command is the argv to run; arguments may hold placeholders such as {base_dir}
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`
	// Probe names a started node whose /oobi is fetched
	Probe string `yaml:"probe,omitempty" json:"probe,omitempty"`
	// Wait collects every background command started so far
	Wait bool `yaml:"wait,omitempty" json:"wait,omitempty"`
	// Background starts Command without waiting for it
	Background bool `yaml:"background,omitempty" json:"background,omitempty"`
	// Participants is a list such as "Alice, Bob and Charlie"
	Participants string `yaml:"participants,omitempty" json:"participants,omitempty"`
	// Expand selects how the step repeats over Participants
	Expand ExpandMode `yaml:"expand,omitempty" json:"expand,omitempty"`
	// Expected defines the expected outcome
	Expected TestExpectation `yaml:"expected,omitempty" json:"expected"`
	// Retry configuration for this step
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
	// Timeout for this specific step
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// TestExpectation defines what result is expected from a test step
type TestExpectation struct {
	// Success indicates whether the step should succeed. Unset means true.
	Success *bool `yaml:"success,omitempty" json:"success,omitempty"`
	// ErrorContains checks if error message contains specific text
	ErrorContains []string `yaml:"error_contains,omitempty" json:"error_contains,omitempty"`
	// Contains checks if output contains specific text
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`
	// NotContains checks if output does not contain specific text
	NotContains []string `yaml:"not_contains,omitempty" json:"not_contains,omitempty"`
	// JSONPath checks fields of the JSON object in the output
	JSONPath map[string]interface{} `yaml:"json_path,omitempty" json:"json_path,omitempty"`
}

// ExpectSuccess reports whether the step is expected to succeed.
func (e TestExpectation) ExpectSuccess() bool {
	return e.Success == nil || *e.Success
}

// RetryConfig defines retry behavior for test steps
type RetryConfig struct {
	// Count is the number of retry attempts
	Count int `yaml:"count" json:"count"`
	// Delay between retry attempts
	Delay time.Duration `yaml:"delay" json:"delay"`
	// BackoffMultiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier,omitempty" json:"backoff_multiplier,omitempty"`
}

// TestSuiteResult represents the overall result of test suite execution
type TestSuiteResult struct {
	// RunID identifies this run in logs and report file names
	RunID string `json:"run_id"`
	// StartTime when test execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when test execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of test execution
	Duration time.Duration `json:"duration"`
	// TotalScenarios is the total number of scenarios executed
	TotalScenarios int `json:"total_scenarios"`
	// PassedScenarios is the number of scenarios that passed
	PassedScenarios int `json:"passed_scenarios"`
	// FailedScenarios is the number of scenarios that failed
	FailedScenarios int `json:"failed_scenarios"`
	// SkippedScenarios is the number of scenarios that were skipped
	SkippedScenarios int `json:"skipped_scenarios"`
	// ErrorScenarios is the number of scenarios that had errors
	ErrorScenarios int `json:"error_scenarios"`
	// ScenarioResults contains individual scenario results
	ScenarioResults []TestScenarioResult `json:"scenario_results"`
	// Configuration used for this test run
	Configuration TestConfiguration `json:"configuration"`
}

// TestScenarioResult represents the result of a single test scenario
type TestScenarioResult struct {
	// Scenario is the scenario that was executed
	Scenario TestScenario `json:"scenario"`
	// Result is the overall result of the scenario
	Result TestResult `json:"result"`
	// StartTime when scenario execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when scenario execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of scenario execution
	Duration time.Duration `json:"duration"`
	// Nodes lists the witnesses that were started for the scenario
	Nodes []string `json:"nodes,omitempty"`
	// StepResults contains individual step results
	StepResults []TestStepResult `json:"step_results"`
	// Error message if the scenario failed or had an error
	Error string `json:"error,omitempty"`
}

// TestStepResult represents the result of a single test step
type TestStepResult struct {
	// Step is the step that was executed, placeholders resolved
	Step TestStep `json:"step"`
	// Result is the result of the step
	Result TestResult `json:"result"`
	// StartTime when step execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when step execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of step execution
	Duration time.Duration `json:"duration"`
	// Output is the command stdout or the probe body
	Output string `json:"output,omitempty"`
	// Error message if the step failed
	Error string `json:"error,omitempty"`
	// RetryCount is the number of retries attempted
	RetryCount int `json:"retry_count"`
}

// TestRunner interface defines the test execution engine
type TestRunner interface {
	// Run executes test scenarios according to the configuration
	Run(ctx context.Context, config TestConfiguration, scenarios []TestScenario) (*TestSuiteResult, error)
}

// Lifecycle brings the witnesses of a scenario up around its body.
// *orchestrator.Orchestrator implements it.
type Lifecycle interface {
	Run(ctx context.Context, tags []string, body func(ctx context.Context, reg *orchestrator.Registry) error) error
}

// CommandExecutor runs the kli commands of a step.
type CommandExecutor interface {
	// Run executes argv and waits for it. A non-zero exit is returned as an error
	// together with the captured output.
	Run(ctx context.Context, argv []string) (CommandResult, error)
	// Start executes argv without waiting.
	Start(ctx context.Context, argv []string) (BackgroundCommand, error)
}

// BackgroundCommand is a command started by a background step.
type BackgroundCommand interface {
	Wait() (CommandResult, error)
}

// CommandResult is the captured outcome of a command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// TestScenarioLoader interface defines how test scenarios are loaded
type TestScenarioLoader interface {
	// LoadScenarios loads test scenarios from the given path
	LoadScenarios(configPath string) ([]TestScenario, error)
	// FilterScenarios filters scenarios based on the configuration
	FilterScenarios(scenarios []TestScenario, config TestConfiguration) []TestScenario
}

// TestReporter interface defines how test results are reported
type TestReporter interface {
	// ReportStart is called when test execution begins
	ReportStart(config TestConfiguration)
	// ReportScenarioStart is called when a scenario begins
	ReportScenarioStart(scenario TestScenario)
	// ReportStepResult is called when a step completes
	ReportStepResult(stepResult TestStepResult)
	// ReportScenarioResult is called when a scenario completes
	ReportScenarioResult(scenarioResult TestScenarioResult)
	// ReportSuiteResult is called when all tests complete
	ReportSuiteResult(suiteResult TestSuiteResult)
}
