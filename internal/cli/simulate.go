package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"contract-compliance-monitor/internal/app"
)

var (
	simulateContract  string
	simulateCheckType string
	simulateErrors    []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次合规失败并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateContract == "" {
			return errors.New("--contract 必须提供")
		}

		opts := app.SimulateOptions{
			Contract:  simulateContract,
			CheckType: simulateCheckType,
			Errors:    simulateErrors,
		}

		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateContract, "contract", "", "契约名称")
	simulateCmd.Flags().StringVar(&simulateCheckType, "type", "schema", "检查类型")
	simulateCmd.Flags().StringArrayVar(&simulateErrors, "error", nil, "自定义错误信息, 可多次指定")
}
