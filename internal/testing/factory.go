package testing

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"kliharness/internal/config"
	"kliharness/internal/orchestrator"
	"kliharness/internal/readiness"
)

// DefaultTestConfiguration returns a default test configuration for the working
// area at root.
func DefaultTestConfiguration(root string) TestConfiguration {
	return TestConfiguration{
		Timeout:      30 * time.Minute,
		FailFast:     false,
		Verbose:      false,
		Debug:        false,
		ScenarioPath: GetDefaultScenarioPath(root),
	}
}

// GetDefaultScenarioPath returns where scenario files live by default.
func GetDefaultScenarioPath(root string) string {
	return filepath.Join(root, "scenarios")
}

// TestFramework holds all components needed for testing
type TestFramework struct {
	Runner       TestRunner
	Loader       TestScenarioLoader
	Reporter     TestReporter
	Orchestrator *orchestrator.Orchestrator
}

// NewTestFramework creates a fully configured test framework. Reports are written
// to out.
func NewTestFramework(cfg config.HarnessConfig, testCfg TestConfiguration, out io.Writer) (*TestFramework, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harness configuration: %w", err)
	}
	if err := ValidateConfiguration(testCfg); err != nil {
		return nil, fmt.Errorf("invalid test configuration: %w", err)
	}

	prober := readiness.NewProber(cfg.Tick, cfg.Readiness.Timeout, cfg.Readiness.RetryInterval)
	orch := orchestrator.New(cfg, orchestrator.WithProber(prober))

	loader := NewTestScenarioLoader(testCfg.Debug)
	reporter := newReporter(testCfg, out)
	executor := NewCommandExecutor(cfg.Root)

	vars := map[string]string{
		"root":       cfg.Root,
		"kli":        cfg.Kli,
		"config_dir": cfg.ConfigDir(),
		"base_dir":   cfg.BaseDir(),
		"data_dir":   cfg.DataDir(),
	}
	runner := NewTestRunner(executor, loader, reporter, orch, prober, vars, testCfg.Debug)

	return &TestFramework{
		Runner:       runner,
		Loader:       loader,
		Reporter:     reporter,
		Orchestrator: orch,
	}, nil
}

func newReporter(testCfg TestConfiguration, out io.Writer) TestReporter {
	switch testCfg.Output {
	case OutputQuiet:
		return NewQuietReporter(out)
	case OutputJSON:
		return NewJSONReporter(out)
	default:
		return NewTestReporter(out, testCfg.Verbose, testCfg.Debug, testCfg.ReportPath)
	}
}

// ValidateConfiguration validates a test configuration
func ValidateConfiguration(config TestConfiguration) error {
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if config.ScenarioPath == "" {
		return fmt.Errorf("scenario path must be set")
	}
	switch config.Output {
	case "", OutputText, OutputQuiet, OutputJSON:
	default:
		return fmt.Errorf("unknown output %q (want %s, %s or %s)", config.Output, OutputText, OutputQuiet, OutputJSON)
	}
	return nil
}
