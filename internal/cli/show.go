package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"contract-compliance-monitor/internal/app"
)

var (
	showContract  string
	showCheckType string
	showLimit     int
	showAlerts    bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent check outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Contract:  showContract,
			CheckType: showCheckType,
			Limit:     showLimit,
			Alerts:    showAlerts,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showContract, "contract", "", "Filter by contract name")
	showCmd.Flags().StringVar(&showCheckType, "type", "", "Filter by check type")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of outcomes to display")
	showCmd.Flags().BoolVar(&showAlerts, "alerts", false, "List fired alerts instead of outcomes")
}
