package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kliharness/internal/config"
	"kliharness/pkg/logging"
)

var (
	// rootDir is the working area holding config, base and data
	rootDir string
	// configFile is an explicit config layer read after the user and project ones
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kliharness",
	Short: "Run kli integration scenarios against local KERI witnesses",
	Long: `kliharness starts the local KERI witnesses a kli scenario needs, waits for them
to answer on their OOBI endpoint, runs the scenario and tears everything down again.

Witness profiles are selected by scenario tags:
  with_witness       one witness "wit" on port 5646, unlocked with a passcode
  with_witness_pool  witnesses "wan", "wil" and "wes" on ports 5642-5644, each
                     probed on GET /oobi before the next one starts`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed scenarios, witnesses that never answered)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitForCLI(logging.ParseLevel(logLevel), logFormat, cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kliharness version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Working area for witness config, base and data directories (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Additional config file, read after ~/.config/kliharness and <root>/.kliharness")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format (text, json)")
}

// loadConfig resolves the layered harness configuration for the current flags.
func loadConfig() (config.HarnessConfig, error) {
	cfg, err := config.LoadConfig(config.LoadOptions{Root: rootDir, ConfigPath: configFile})
	if err != nil {
		return config.HarnessConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.HarnessConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
