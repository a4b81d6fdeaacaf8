package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kliharness/internal/config"
	"kliharness/internal/testing"
)

var (
	testTimeout      time.Duration
	testVerbose      bool
	testDebug        bool
	testScenario     string
	testTags         []string
	testScenarioPath string
	testReportPath   string
	testFailFast     bool
	testOutput       string
)

// completeScenarioFlag provides shell completion for the scenario flag by loading available scenarios
func completeScenarioFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	scenarioPath := testScenarioPath
	if scenarioPath == "" {
		cfg, err := config.LoadConfig(config.LoadOptions{Root: rootDir, ConfigPath: configFile})
		if err != nil {
			return nil, cobra.ShellCompDirectiveDefault
		}
		scenarioPath = testing.GetDefaultScenarioPath(cfg.Root)
	}

	// Don't enable debug for completion
	scenarios, err := testing.NewTestScenarioLoader(false).LoadScenarios(scenarioPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}

	var scenarioNames []string
	for _, scenario := range scenarios {
		scenarioNames = append(scenarioNames, scenario.Name)
	}
	return scenarioNames, cobra.ShellCompDirectiveDefault
}

// completeTagFlag offers the configured profile tags
func completeTagFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.LoadConfig(config.LoadOptions{Root: rootDir, ConfigPath: configFile})
	if err != nil {
		return []string{config.TagWitness, config.TagWitnessPool}, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.Tags(), cobra.ShellCompDirectiveNoFileComp
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run kli scenarios against freshly started witnesses",
	Long: `The test command runs YAML scenarios one after another. Before each scenario the
witnesses its tags select are started, and probed witnesses must answer GET /oobi
before the next one is launched. After the scenario and its cleanup steps the
witnesses are sent SIGTERM, reaped and the base directory is purged.

Example usage:
  kliharness test                               # Run all scenarios under <root>/scenarios
  kliharness test --tag with_witness_pool       # Run scenarios needing the witness pool
  kliharness test --scenario challenge          # Run a specific scenario
  kliharness test --verbose --debug             # Detailed output including command output
  kliharness test --fail-fast                   # Stop on first failure
  kliharness test --output json                 # Machine readable result on stdout
  kliharness test --report ./reports            # Save a detailed JSON report`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	// Test execution configuration
	testCmd.Flags().DurationVar(&testTimeout, "timeout", 30*time.Minute, "Overall test execution timeout")

	// Output and debugging
	testCmd.Flags().BoolVar(&testVerbose, "verbose", false, "Enable verbose test output")
	testCmd.Flags().BoolVar(&testDebug, "debug", false, "Include command output in the report")
	testCmd.Flags().StringVar(&testOutput, "output", testing.OutputText, "Reporter (text, quiet, json)")

	// Test selection and filtering
	testCmd.Flags().StringVar(&testScenario, "scenario", "", "Run specific test scenario by name")
	testCmd.Flags().StringSliceVar(&testTags, "tag", nil, "Run scenarios carrying any of these tags")

	// Test configuration and reporting
	testCmd.Flags().StringVar(&testScenarioPath, "scenarios", "", "Scenario file or directory (default: <root>/scenarios)")
	testCmd.Flags().StringVar(&testReportPath, "report", "", "Directory to save a detailed JSON report in")

	// Test execution control
	testCmd.Flags().BoolVar(&testFailFast, "fail-fast", false, "Stop test execution on first failure")

	// Shell completion for test flags
	_ = testCmd.RegisterFlagCompletionFunc("scenario", completeScenarioFlag)
	_ = testCmd.RegisterFlagCompletionFunc("tag", completeTagFlag)
	_ = testCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{testing.OutputText, testing.OutputQuiet, testing.OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Handle interrupts gracefully; the running scenario still tears its witnesses down
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	testConfig := testing.DefaultTestConfiguration(cfg.Root)
	testConfig.Timeout = testTimeout
	testConfig.Scenario = testScenario
	testConfig.Tags = testTags
	testConfig.FailFast = testFailFast
	testConfig.Verbose = testVerbose
	testConfig.Debug = testDebug
	testConfig.ReportPath = testReportPath
	testConfig.Output = testOutput
	if testScenarioPath != "" {
		testConfig.ScenarioPath = testScenarioPath
	}

	framework, err := testing.NewTestFramework(cfg, testConfig, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to create test framework: %w", err)
	}

	scenarios, err := framework.Loader.LoadScenarios(testConfig.ScenarioPath)
	if err != nil {
		return fmt.Errorf("failed to load test scenarios: %w", err)
	}
	if len(scenarios) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  No test scenarios found in %s\n", testConfig.ScenarioPath)
		return nil
	}

	result, err := framework.Runner.Run(ctx, testConfig, scenarios)
	if err != nil {
		return fmt.Errorf("test execution failed: %w", err)
	}
	if failed := result.FailedScenarios + result.ErrorScenarios; failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, result.TotalScenarios)
	}
	if ctx.Err() == context.Canceled && result.SkippedScenarios > 0 {
		return fmt.Errorf("interrupted, %d scenarios skipped", result.SkippedScenarios)
	}
	return nil
}
