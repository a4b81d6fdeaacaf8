package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kliharness/internal/readiness"
)

var (
	probePort    int
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Wait for a witness to answer GET /oobi and print the key event it serves",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().IntVar(&probePort, "port", 0, "HTTP port of the witness on 127.0.0.1")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 0, "How long to keep probing (default: readiness.timeout from config)")
	_ = probeCmd.MarkFlagRequired("port")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	timeout := probeTimeout
	if timeout == 0 {
		timeout = cfg.Readiness.Timeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prober := readiness.NewProber(cfg.Tick, timeout, cfg.Readiness.RetryInterval)
	resp, err := prober.Probe(ctx, probePort)
	if err != nil {
		return err
	}

	body, err := readiness.ExtractJSON(resp.Body)
	if err != nil {
		return fmt.Errorf("%s answered %d without a key event: %w", readiness.BaseURL(probePort), resp.Status, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}
