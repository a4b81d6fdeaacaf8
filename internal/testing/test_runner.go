package testing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kliharness/internal/orchestrator"
	"kliharness/internal/readiness"
	"kliharness/pkg/logging"
)

// testRunner implements the TestRunner interface
type testRunner struct {
	executor  CommandExecutor
	loader    TestScenarioLoader
	reporter  TestReporter
	lifecycle Lifecycle
	prober    orchestrator.Prober
	vars      map[string]string
	debug     bool
}

// NewTestRunner creates a new test runner. vars are the placeholders available to
// every step, such as root and base_dir.
func NewTestRunner(executor CommandExecutor, loader TestScenarioLoader, reporter TestReporter, lifecycle Lifecycle, prober orchestrator.Prober, vars map[string]string, debug bool) TestRunner {
	return &testRunner{
		executor:  executor,
		loader:    loader,
		reporter:  reporter,
		lifecycle: lifecycle,
		prober:    prober,
		vars:      vars,
		debug:     debug,
	}
}

// scenarioState is what the steps of one scenario share.
type scenarioState struct {
	// ctx outlives individual steps; background commands are bound to it
	ctx        context.Context
	registry   *orchestrator.Registry
	background []pendingCommand
}

type pendingCommand struct {
	step TestStep
	cmd  BackgroundCommand
}

// Run executes test scenarios according to the configuration. Scenarios run one
// after another since they share the witness working area.
func (r *testRunner) Run(ctx context.Context, config TestConfiguration, scenarios []TestScenario) (*TestSuiteResult, error) {
	result := &TestSuiteResult{
		RunID:         uuid.NewString(),
		StartTime:     time.Now(),
		Configuration: config,
	}
	log := logging.With("Runner", "run_id", result.RunID)

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	// Report test start
	r.reporter.ReportStart(config)

	// Filter scenarios based on configuration
	filteredScenarios := r.loader.FilterScenarios(scenarios, config)
	result.TotalScenarios = len(filteredScenarios)
	result.ScenarioResults = make([]TestScenarioResult, 0, len(filteredScenarios))

	for i, scenario := range filteredScenarios {
		if ctx.Err() != nil {
			for _, skipped := range filteredScenarios[i:] {
				sr := TestScenarioResult{Scenario: skipped, Result: ResultSkipped, Error: "test run cancelled"}
				result.ScenarioResults = append(result.ScenarioResults, sr)
				r.updateCounters(result, sr)
				r.reporter.ReportScenarioResult(sr)
			}
			break
		}

		log.Info("running scenario", "scenario", scenario.Name, "tags", scenario.Tags)
		scenarioResult := r.runScenario(ctx, scenario)
		result.ScenarioResults = append(result.ScenarioResults, scenarioResult)

		// Update counters
		r.updateCounters(result, scenarioResult)

		// Report individual scenario result
		r.reporter.ReportScenarioResult(scenarioResult)

		// Check fail-fast
		if config.FailFast && (scenarioResult.Result == ResultFailed || scenarioResult.Result == ResultError) {
			break
		}
	}

	// Finalize result
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	// Report final suite result
	r.reporter.ReportSuiteResult(*result)

	return result, nil
}

// runScenario executes a single test scenario inside the witness lifecycle selected
// by its tags.
func (r *testRunner) runScenario(ctx context.Context, scenario TestScenario) TestScenarioResult {
	result := TestScenarioResult{
		Scenario:    scenario,
		StartTime:   time.Now(),
		StepResults: make([]TestStepResult, 0, len(scenario.Steps)),
		Result:      ResultPassed,
	}

	// Report scenario start
	r.reporter.ReportScenarioStart(scenario)

	// Apply scenario timeout if specified
	scenarioCtx := ctx
	if scenario.Timeout > 0 {
		var cancel context.CancelFunc
		scenarioCtx, cancel = context.WithTimeout(ctx, scenario.Timeout)
		defer cancel()
	}

	bodyRan := false
	err := r.lifecycle.Run(scenarioCtx, scenario.Tags, func(ctx context.Context, reg *orchestrator.Registry) error {
		bodyRan = true
		result.Nodes = reg.Names()

		stepsCtx, cancel := context.WithCancel(ctx)
		state := &scenarioState{ctx: stepsCtx, registry: reg}

		// Execute steps
		for _, step := range scenario.Steps {
			if r.runAndRecord(step, state, &result) {
				break
			}
		}

		// Execute cleanup steps regardless of main scenario outcome
		for _, cleanupStep := range scenario.Cleanup {
			r.runAndRecord(cleanupStep, state, &result)
		}

		// Background commands nobody waited for are killed with the scenario
		cancel()
		for _, p := range state.background {
			_, _ = p.cmd.Wait()
		}
		return nil
	})

	if err != nil {
		switch {
		case !bodyRan:
			result.Result = ResultError
			result.Error = fmt.Sprintf("failed to start witnesses: %v", err)
		case result.Result == ResultPassed:
			result.Result = ResultError
			result.Error = fmt.Sprintf("teardown failed: %v", err)
		default:
			logging.Error("Runner", err, "Teardown of scenario %s failed", scenario.Name)
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

// runAndRecord runs step, records and reports its results and reports whether it
// failed. The first failure becomes the scenario result.
func (r *testRunner) runAndRecord(step TestStep, state *scenarioState, result *TestScenarioResult) bool {
	failed := false
	for _, stepResult := range r.runStep(state, step) {
		result.StepResults = append(result.StepResults, stepResult)
		r.reporter.ReportStepResult(stepResult)

		if stepResult.Result == ResultFailed || stepResult.Result == ResultError {
			failed = true
			if result.Result == ResultPassed {
				result.Result = stepResult.Result
				result.Error = stepResult.Error
			}
		}
	}
	return failed
}

// runStep executes a step, once per expanded invocation.
func (r *testRunner) runStep(state *scenarioState, step TestStep) []TestStepResult {
	if step.Wait {
		return []TestStepResult{r.waitBackground(state, step)}
	}

	invocations, err := expand(step)
	if err != nil {
		now := time.Now()
		return []TestStepResult{{Step: step, Result: ResultError, Error: err.Error(), StartTime: now, EndTime: now}}
	}

	results := make([]TestStepResult, 0, len(invocations))
	for _, inv := range invocations {
		results = append(results, r.runInvocation(state, step, inv))
		if last := results[len(results)-1]; last.Result != ResultPassed {
			break
		}
	}
	return results
}

// runInvocation executes a single expanded step with retries
func (r *testRunner) runInvocation(state *scenarioState, step TestStep, inv invocation) (result TestStepResult) {
	result = TestStepResult{
		Step:      step,
		StartTime: time.Now(),
		Result:    ResultPassed,
	}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	resolved, err := r.resolveStep(step, inv, state.registry)
	if err != nil {
		result.Result = ResultError
		result.Error = err.Error()
		return result
	}
	result.Step = resolved

	// Apply step timeout if specified
	stepCtx := state.ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(state.ctx, step.Timeout)
		defer cancel()
	}

	// Execute step with retries
	maxAttempts := 1
	if step.Retry != nil && step.Retry.Count > 0 {
		maxAttempts = step.Retry.Count + 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			result.RetryCount = attempt

			// Apply retry delay
			if step.Retry.Delay > 0 {
				delay := step.Retry.Delay
				if step.Retry.BackoffMultiplier > 0 {
					for i := 1; i < attempt; i++ {
						delay = time.Duration(float64(delay) * step.Retry.BackoffMultiplier)
					}
				}

				logging.Debug("Runner", "Retrying step '%s' in %v (attempt %d/%d)", resolved.Name, delay, attempt+1, maxAttempts)

				select {
				case <-time.After(delay):
				case <-stepCtx.Done():
					result.Result = ResultError
					result.Error = "step cancelled during retry delay"
					return result
				}
			}
		}

		output, execErr := r.execute(stepCtx, state, resolved)
		result.Output = output

		// A started background command is checked by the wait step.
		if resolved.Background && (execErr == nil || !resolved.Expected.ExpectSuccess()) {
			result.Result = ResultPassed
			result.Error = ""
			return result
		}

		verr := validateExpectations(resolved.Expected, output, execErr)
		if verr == nil {
			result.Result = ResultPassed
			result.Error = ""
			return result
		}

		if execErr != nil && resolved.Expected.ExpectSuccess() {
			result.Result = ResultError
			result.Error = execErr.Error()
		} else {
			result.Result = ResultFailed
			result.Error = verr.Error()
		}
		if stepCtx.Err() != nil {
			break
		}
	}

	return result
}

// resolveStep fills placeholders of a step invocation.
func (r *testRunner) resolveStep(step TestStep, inv invocation, reg *orchestrator.Registry) (TestStep, error) {
	res := newResolver(r.vars, inv.vars, reg)

	out := step
	if inv.label != "" {
		out.Name = fmt.Sprintf("%s [%s]", step.Name, inv.label)
	}

	if len(step.Command) > 0 {
		argv, err := res.resolveAll(step.Command)
		if err != nil {
			return step, err
		}
		out.Command = argv
	}
	if step.Probe != "" {
		alias, err := res.resolve(step.Probe)
		if err != nil {
			return step, err
		}
		out.Probe = alias
	}

	expected, err := resolveExpectation(res, step.Expected)
	if err != nil {
		return step, err
	}
	out.Expected = expected
	return out, nil
}

// resolveExpectation fills placeholders in the texts a step output is checked
// against.
func resolveExpectation(res *resolver, e TestExpectation) (TestExpectation, error) {
	out := e
	var err error
	if out.Contains, err = resolveTexts(res, e.Contains); err != nil {
		return e, err
	}
	if out.NotContains, err = resolveTexts(res, e.NotContains); err != nil {
		return e, err
	}
	if len(e.JSONPath) > 0 {
		out.JSONPath = make(map[string]interface{}, len(e.JSONPath))
		for path, want := range e.JSONPath {
			if s, ok := want.(string); ok {
				if want, err = res.resolve(s); err != nil {
					return e, fmt.Errorf("json_path %s: %w", path, err)
				}
			}
			out.JSONPath[path] = want
		}
	}
	return out, nil
}

func resolveTexts(res *resolver, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return texts, nil
	}
	return res.resolveAll(texts)
}

// execute runs the resolved step and returns its output.
func (r *testRunner) execute(ctx context.Context, state *scenarioState, step TestStep) (string, error) {
	switch {
	case step.Probe != "":
		return r.probe(ctx, state.registry, step.Probe)

	case step.Background:
		cmd, err := r.executor.Start(state.ctx, step.Command)
		if err != nil {
			return "", err
		}
		state.background = append(state.background, pendingCommand{step: step, cmd: cmd})
		return "", nil

	default:
		res, err := r.executor.Run(ctx, step.Command)
		return res.Stdout, err
	}
}

// probe fetches /oobi of a started node and records its prefix.
func (r *testRunner) probe(ctx context.Context, reg *orchestrator.Registry, alias string) (string, error) {
	node, err := reg.Lookup(alias)
	if err != nil {
		return "", err
	}
	resp, err := r.prober.Probe(ctx, node.Spec.HTTPPort)
	if err != nil {
		return "", err
	}

	data, err := readiness.ExtractJSON(resp.Body)
	if err != nil {
		return string(resp.Body), err
	}
	oobi, err := readiness.DecodeOOBI(data)
	if err != nil {
		logging.Warn("Runner", "Node %s answered with an unreadable oobi: %v", alias, err)
		return string(data), nil
	}
	reg.Merge(alias, orchestrator.Node{OOBI: oobi})
	return string(data), nil
}

// waitBackground waits for every background command started so far and checks each
// against the expectations of the step that started it.
func (r *testRunner) waitBackground(state *scenarioState, step TestStep) TestStepResult {
	result := TestStepResult{Step: step, StartTime: time.Now(), Result: ResultPassed}

	var outputs []string
	var errs []error
	for _, p := range state.background {
		res, err := p.cmd.Wait()
		outputs = append(outputs, res.Stdout)
		if verr := validateExpectations(p.step.Expected, res.Stdout, err); verr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.step.Name, verr))
		}
	}
	state.background = nil

	result.Output = strings.Join(outputs, "")
	if err := errors.Join(errs...); err != nil {
		result.Result = ResultFailed
		result.Error = err.Error()
	}
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

// updateCounters updates the result counters based on a scenario result
func (r *testRunner) updateCounters(suiteResult *TestSuiteResult, scenarioResult TestScenarioResult) {
	switch scenarioResult.Result {
	case ResultPassed:
		suiteResult.PassedScenarios++
	case ResultFailed:
		suiteResult.FailedScenarios++
	case ResultSkipped:
		suiteResult.SkippedScenarios++
	case ResultError:
		suiteResult.ErrorScenarios++
	}
}
