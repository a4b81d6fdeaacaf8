package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"kliharness/internal/orchestrator"
	"kliharness/pkg/logging"
)

var witnessTags []string

func newWitnessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "witness",
		Short: "Start or inspect the witness profiles outside of a scenario",
	}
	cmd.PersistentFlags().StringSliceVar(&witnessTags, "tag", nil, "Profile tags to activate (repeatable, e.g. --tag with_witness_pool)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Start the witnesses of the given tags and keep them running until interrupted",
		Long: `Starts every witness the given tags activate, waits for probed witnesses to
answer GET /oobi and keeps them running until SIGINT or SIGTERM. The witnesses are
then stopped and the base directory is purged, as after a scenario.`,
		Args: cobra.NoArgs,
		RunE: runWitnessUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "Print the witnesses the given tags would start",
		Args:  cobra.NoArgs,
		RunE:  runWitnessPlan,
	})
	return cmd
}

func init() {
	rootCmd.AddCommand(newWitnessCmd())
}

func runWitnessUp(cmd *cobra.Command, args []string) error {
	if len(witnessTags) == 0 {
		return fmt.Errorf("at least one --tag is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(cfg)
	return orch.Run(ctx, witnessTags, func(ctx context.Context, reg *orchestrator.Registry) error {
		printNodes(cmd.OutOrStdout(), reg)
		logging.Info("CLI", "Witnesses running, press Ctrl+C to stop")
		<-ctx.Done()
		logging.Info("CLI", "Stopping witnesses")
		return nil
	})
}

func runWitnessPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tags := witnessTags
	if len(tags) == 0 {
		tags = cfg.Tags()
	}

	out := cmd.OutOrStdout()
	for _, pn := range orchestrator.New(cfg).Plan(tags) {
		probe := ""
		if pn.Probe {
			probe = " (probed)"
		}
		fmt.Fprintf(out, "%s %s%s\n  %s %s\n", pn.Spec.Alias, pn.Spec.URL(), probe, cfg.Kli, strings.Join(pn.Spec.Args(), " "))
	}
	return nil
}

// printNodes writes one aligned line per started witness.
func printNodes(w io.Writer, reg *orchestrator.Registry) {
	names := reg.Names()
	width := 0
	for _, n := range names {
		width = max(width, runewidth.StringWidth(n))
	}
	for _, n := range names {
		node, _ := reg.Get(n)
		prefix := "-"
		if node.OOBI != nil && node.OOBI.Prefix != "" {
			prefix = node.OOBI.Prefix
		}
		pid := 0
		if node.Handle != nil {
			pid = node.Handle.PID()
		}
		fmt.Fprintf(w, "%s  %s  pid %-7d %s\n", runewidth.FillRight(n, width), node.Spec.URL(), pid, prefix)
	}
}
