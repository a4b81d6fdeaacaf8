package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kliharness/internal/orchestrator"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Purge the witness base directory",
	Long: `Removes everything under <root>/base, as is done after every scenario. The
sentinel file (DO_NOT_DELETE by default) is kept unless cleanup.preserveSentinel is false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sentinel := ""
		if cfg.PreserveSentinel() {
			sentinel = cfg.Cleanup.Sentinel
		}
		if err := orchestrator.Purge(cfg.BaseDir(), sentinel); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", cfg.BaseDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
