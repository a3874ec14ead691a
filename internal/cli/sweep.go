package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"contract-compliance-monitor/internal/app"
)

var (
	sweepType    string
	sweepWorkers int
	sweepDryRun  bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one sweep of compliance checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sweepType == "" {
			return fmt.Errorf("--type must be provided")
		}

		opts := app.SweepOptions{
			CheckType: sweepType,
			Workers:   sweepWorkers,
			DryRun:    sweepDryRun,
		}

		return getApp().Sweep(cmd.Context(), opts)
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepType, "type", "", "Check type to sweep (schema|quality|availability)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 4, "Number of concurrent workers")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Run checks without recording or alerting")
}
