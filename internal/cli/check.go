package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"contract-compliance-monitor/internal/app"
)

var (
	checkContract string
	checkType     string
	checkRecord   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a single contract on demand",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkContract == "" || checkType == "" {
			return fmt.Errorf("--contract and --type must be provided")
		}

		opts := app.CheckOptions{
			Contract:  checkContract,
			CheckType: checkType,
			Record:    checkRecord,
		}

		return getApp().Check(cmd.Context(), opts)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkContract, "contract", "", "Contract name or ID to check")
	checkCmd.Flags().StringVar(&checkType, "type", "", "Check type to run (schema|quality|availability)")
	checkCmd.Flags().BoolVar(&checkRecord, "record", false, "Record the outcome and route it through alerting")
}
