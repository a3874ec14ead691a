package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/service"
)

// SimulateAlert 构造一次合成的失败结果并走完整条告警链路,
// 用于验证通知通道和冷却窗口配置是否生效。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	if err := validCheckType(opts.CheckType); err != nil {
		return err
	}

	messages := opts.Errors
	if len(messages) == 0 {
		messages = []string{fmt.Sprintf("simulated %s failure", opts.CheckType)}
	}

	snap := contract.Snapshot{
		ID:      uuid.New(),
		Name:    opts.Contract,
		Version: "simulated",
		Status:  contract.StatusActive,
	}
	out := contract.NewOutcome(snap, opts.CheckType, contract.CheckFail)
	out.Errors = messages

	contracts, probes := a.newSources()
	svc := service.New(a.Config, nil, contracts, probes, a.newNotifier(), nil, nil, nil, a.Logger)
	if err := svc.Alert(ctx, out); err != nil {
		return err
	}

	a.Logger.Info().
		Str("contract", opts.Contract).
		Str("check_type", opts.CheckType).
		Msg("模拟告警已发送")
	return nil
}
