package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// testReporter implements the TestReporter interface
type testReporter struct {
	out        io.Writer
	styles     reportStyles
	verbose    bool
	debug      bool
	reportPath string
	now        func() time.Time
}

// NewTestReporter creates a new test reporter writing to out.
func NewTestReporter(out io.Writer, verbose, debug bool, reportPath string) TestReporter {
	if out == nil {
		out = os.Stdout
	}
	return &testReporter{
		out:        out,
		styles:     newReportStyles(out),
		verbose:    verbose,
		debug:      debug,
		reportPath: reportPath,
		now:        time.Now,
	}
}

func (r *testReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

// ReportStart is called when test execution begins
func (r *testReporter) ReportStart(config TestConfiguration) {
	r.printf("%s\n", r.styles.title.Render("🧪 kliharness scenarios"))

	if r.verbose {
		r.printf("⚙️  Configuration:\n")
		r.printf("   • Scenario: %s\n", r.stringOrDefault(config.Scenario, "all"))
		r.printf("   • Tags: %s\n", r.stringOrDefault(strings.Join(config.Tags, ", "), "all"))
		r.printf("   • Fail fast: %t\n", config.FailFast)
		r.printf("   • Timeout: %v\n", config.Timeout)
		if config.ScenarioPath != "" {
			r.printf("   • Scenario path: %s\n", config.ScenarioPath)
		}
		if config.ReportPath != "" {
			r.printf("   • Report path: %s\n", config.ReportPath)
		}
		r.printf("\n")
	}
}

// ReportScenarioStart is called when a scenario begins
func (r *testReporter) ReportScenarioStart(scenario TestScenario) {
	if r.verbose {
		r.printf("🎯 Starting scenario: %s\n", scenario.Name)
		if scenario.Description != "" {
			r.printf("   📝 %s\n", scenario.Description)
		}
		if len(scenario.Tags) > 0 {
			r.printf("   🏷️  Tags: %s\n", strings.Join(scenario.Tags, ", "))
		}
		r.printf("   📋 Steps: %d\n", len(scenario.Steps))
		if len(scenario.Cleanup) > 0 {
			r.printf("   🧹 Cleanup steps: %d\n", len(scenario.Cleanup))
		}
		if scenario.Timeout > 0 {
			r.printf("   ⏱️  Timeout: %v\n", scenario.Timeout)
		}
		r.printf("\n")
	} else {
		r.printf("🎯 %s... ", scenario.Name)
	}
}

// ReportStepResult is called when a step completes
func (r *testReporter) ReportStepResult(stepResult TestStepResult) {
	if !r.verbose {
		return
	}

	symbol := r.getResultSymbol(stepResult.Result)
	r.printf("   %s Step: %s %s\n", symbol, stepResult.Step.Name,
		r.styles.muted.Render(fmt.Sprintf("(%v)", stepResult.Duration.Round(time.Millisecond))))

	if stepResult.RetryCount > 0 {
		r.printf("     🔄 Retries: %d\n", stepResult.RetryCount)
	}
	if stepResult.Error != "" {
		r.printf("     ❌ Error: %s\n", r.styles.failed.Render(stepResult.Error))
	}
	if r.debug && stepResult.Output != "" {
		r.printf("     📤 Output: %s\n", truncate(stepResult.Output, 200))
	}
}

// ReportScenarioResult is called when a scenario completes
func (r *testReporter) ReportScenarioResult(scenarioResult TestScenarioResult) {
	symbol := r.getResultSymbol(scenarioResult.Result)
	duration := scenarioResult.Duration.Round(time.Millisecond)

	if !r.verbose {
		// Compact output
		r.printf("%s (%v)\n", symbol, duration)
		if scenarioResult.Error != "" {
			r.printf("   %s\n", r.styles.failed.Render(scenarioResult.Error))
		}
		return
	}

	r.printf("%s Scenario completed: %s (%v)\n", symbol, scenarioResult.Scenario.Name, duration)
	if len(scenarioResult.Nodes) > 0 {
		r.printf("   🛰️  Witnesses: %s\n", strings.Join(scenarioResult.Nodes, ", "))
	}
	if scenarioResult.Error != "" {
		r.printf("   ❌ Error: %s\n", r.styles.failed.Render(scenarioResult.Error))
	}

	// Show step summary
	passed, failed, errors := 0, 0, 0
	for _, stepResult := range scenarioResult.StepResults {
		switch stepResult.Result {
		case ResultPassed:
			passed++
		case ResultFailed:
			failed++
		case ResultError:
			errors++
		}
	}

	r.printf("   📊 Steps: %d passed", passed)
	if failed > 0 {
		r.printf(", %d failed", failed)
	}
	if errors > 0 {
		r.printf(", %d errors", errors)
	}
	r.printf("\n\n")
}

// ReportSuiteResult is called when all tests complete
func (r *testReporter) ReportSuiteResult(suiteResult TestSuiteResult) {
	r.printf("\n%s\n", r.styles.title.Render("🏁 Test Suite Complete"))
	r.printf("🆔 Run: %s\n", suiteResult.RunID)
	r.printf("⏱️  Duration: %v\n", suiteResult.Duration.Round(time.Millisecond))

	if len(suiteResult.ScenarioResults) > 0 {
		r.printf("\n%s", r.summaryTable(suiteResult.ScenarioResults))
	}

	r.printf("\n📊 Results:\n")
	r.printf("   ✅ Passed: %d\n", suiteResult.PassedScenarios)
	if suiteResult.FailedScenarios > 0 {
		r.printf("   ❌ Failed: %d\n", suiteResult.FailedScenarios)
	}
	if suiteResult.ErrorScenarios > 0 {
		r.printf("   💥 Errors: %d\n", suiteResult.ErrorScenarios)
	}
	if suiteResult.SkippedScenarios > 0 {
		r.printf("   ⏭️  Skipped: %d\n", suiteResult.SkippedScenarios)
	}
	r.printf("   📈 Total: %d\n", suiteResult.TotalScenarios)

	// Calculate success rate
	successRate := 0.0
	if suiteResult.TotalScenarios > 0 {
		successRate = float64(suiteResult.PassedScenarios) / float64(suiteResult.TotalScenarios) * 100
	}
	r.printf("   📏 Success Rate: %.1f%%\n", successRate)

	// Overall result
	if suiteResult.FailedScenarios == 0 && suiteResult.ErrorScenarios == 0 {
		r.printf("\n%s\n", r.styles.passed.Render("🎉 All tests passed!"))
	} else {
		r.printf("\n%s\n", r.styles.failed.Render("💔 Some tests failed"))
	}

	// Save detailed report if requested
	if r.reportPath != "" {
		path, err := r.saveDetailedReport(suiteResult)
		if err != nil {
			r.printf("⚠️  Failed to save detailed report: %v\n", err)
		} else {
			r.printf("📄 Detailed report saved to: %s\n", path)
		}
	}
}

// summaryTable renders one aligned row per scenario. Widths are measured in
// terminal cells so names with wide characters stay aligned.
func (r *testReporter) summaryTable(results []TestScenarioResult) string {
	nameWidth := runewidth.StringWidth("SCENARIO")
	for _, sr := range results {
		if w := runewidth.StringWidth(sr.Scenario.Name); w > nameWidth {
			nameWidth = w
		}
	}
	const resultWidth = 8

	var b strings.Builder
	b.WriteString(r.styles.header.Render(runewidth.FillRight("SCENARIO", nameWidth)))
	b.WriteString("  ")
	b.WriteString(r.styles.header.Render(runewidth.FillRight("RESULT", resultWidth)))
	b.WriteString("  ")
	b.WriteString(r.styles.header.Render("DURATION"))
	b.WriteString("\n")

	for _, sr := range results {
		b.WriteString(runewidth.FillRight(sr.Scenario.Name, nameWidth))
		b.WriteString("  ")
		b.WriteString(r.styles.forResult(sr.Result).Render(runewidth.FillRight(string(sr.Result), resultWidth)))
		b.WriteString("  ")
		b.WriteString(sr.Duration.Round(time.Millisecond).String())
		b.WriteString("\n")
	}
	return b.String()
}

// saveDetailedReport saves a detailed JSON report to file and returns its path
func (r *testReporter) saveDetailedReport(suiteResult TestSuiteResult) (string, error) {
	// Create report directory if it doesn't exist
	if err := os.MkdirAll(r.reportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	fullPath := filepath.Join(r.reportPath, reportFileName(r.now(), suiteResult.RunID))

	// Convert to JSON
	jsonData, err := json.MarshalIndent(suiteResult, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	// Write to file
	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return fullPath, nil
}

func reportFileName(t time.Time, runID string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		return fmt.Sprintf("kliharness-test-report-%s.json", t.Format("20060102-150405"))
	}
	return fmt.Sprintf("kliharness-test-report-%s-%s.json", t.Format("20060102-150405"), short)
}

// getResultSymbol returns an appropriate symbol for the test result
func (r *testReporter) getResultSymbol(result TestResult) string {
	var symbol string
	switch result {
	case ResultPassed:
		symbol = "✅"
	case ResultFailed:
		symbol = "❌"
	case ResultSkipped:
		symbol = "⏭️"
	case ResultError:
		symbol = "💥"
	default:
		symbol = "❓"
	}
	return symbol
}

// stringOrDefault returns the string if not empty, otherwise returns the default
func (r *testReporter) stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}

// NewQuietReporter creates a reporter that only outputs essential information
func NewQuietReporter(out io.Writer) TestReporter {
	if out == nil {
		out = os.Stdout
	}
	return &quietReporter{out: out}
}

// quietReporter implements minimal output for CI/CD integration
type quietReporter struct {
	out io.Writer
}

func (r *quietReporter) ReportStart(config TestConfiguration) {}

func (r *quietReporter) ReportScenarioStart(scenario TestScenario) {}

func (r *quietReporter) ReportStepResult(stepResult TestStepResult) {}

func (r *quietReporter) ReportScenarioResult(scenarioResult TestScenarioResult) {
	// Only report failures
	if scenarioResult.Result == ResultFailed || scenarioResult.Result == ResultError {
		symbol := "❌"
		if scenarioResult.Result == ResultError {
			symbol = "💥"
		}
		fmt.Fprintf(r.out, "%s %s: %s\n", symbol, scenarioResult.Scenario.Name, scenarioResult.Error)
	}
}

func (r *quietReporter) ReportSuiteResult(suiteResult TestSuiteResult) {
	if suiteResult.FailedScenarios == 0 && suiteResult.ErrorScenarios == 0 {
		fmt.Fprintf(r.out, "✅ All %d tests passed\n", suiteResult.PassedScenarios)
	} else {
		fmt.Fprintf(r.out, "❌ %d/%d tests failed\n",
			suiteResult.FailedScenarios+suiteResult.ErrorScenarios,
			suiteResult.TotalScenarios)
	}
}

// NewJSONReporter creates a reporter that outputs JSON for CI/CD integration
func NewJSONReporter(out io.Writer) TestReporter {
	if out == nil {
		out = os.Stdout
	}
	return &jsonReporter{out: out}
}

// jsonReporter implements JSON output for machine consumption
type jsonReporter struct {
	out io.Writer
}

func (r *jsonReporter) ReportStart(config TestConfiguration) {}

func (r *jsonReporter) ReportScenarioStart(scenario TestScenario) {}

func (r *jsonReporter) ReportStepResult(stepResult TestStepResult) {}

func (r *jsonReporter) ReportScenarioResult(scenarioResult TestScenarioResult) {}

func (r *jsonReporter) ReportSuiteResult(suiteResult TestSuiteResult) {
	jsonData, err := json.MarshalIndent(suiteResult, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, `{"error": "Failed to marshal results: %v"}`+"\n", err)
		return
	}
	fmt.Fprintln(r.out, string(jsonData))
}
