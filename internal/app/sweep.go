package app

import (
	"context"
	"errors"
	"fmt"

	"contract-compliance-monitor/internal/archive"
	"contract-compliance-monitor/internal/contract"
)

// Sweep 手动执行一轮指定类型的合规检查。
func (a *App) Sweep(ctx context.Context, opts SweepOptions) error {
	if err := validCheckType(opts.CheckType); err != nil {
		return err
	}

	var store archive.Store
	var closeStore func()
	var err error

	if opts.DryRun {
		a.Logger.Warn().Msg("sweep dry-run：不会记录结果，也不会发送告警")
	} else {
		store, closeStore, err = a.openArchive(ctx)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}
	}

	svc, err := a.newService(nil, store)
	if err != nil {
		return err
	}

	result, err := svc.SweepOnce(ctx, opts.CheckType, opts.Workers, opts.DryRun)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("check_type", opts.CheckType).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("sweep 完成")
	if result.Failed > 0 {
		return errors.New("部分契约检查失败，请检查日志")
	}
	return nil
}

func validCheckType(checkType string) error {
	switch checkType {
	case contract.CheckSchema, contract.CheckQuality, contract.CheckAvailability:
		return nil
	default:
		return fmt.Errorf("未知检查类型: %q", checkType)
	}
}
