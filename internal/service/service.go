// Package service orchestrates the compliance engine: periodic sweeps list
// active contracts and enqueue check tasks, pool workers execute them, and
// completed outcomes flow through recording and the alert gate.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/alerting"
	"contract-compliance-monitor/internal/archive"
	"contract-compliance-monitor/internal/checks"
	"contract-compliance-monitor/internal/config"
	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/dispatch"
	"contract-compliance-monitor/internal/fetcher"
	"contract-compliance-monitor/internal/ops"
	"contract-compliance-monitor/internal/scheduler"
)

// Service orchestrates sweeps, check execution, recording, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	pool      *dispatch.Pool
	contracts fetcher.ContractSource
	probes    fetcher.ProbeSource
	schema    *checks.SchemaValidator
	quality   *checks.QualityEvaluator
	gate      *alerting.Gate
	notifier  alerting.Notifier
	outcomes  archive.OutcomeStore
	alertLog  archive.AlertLogStore
	stats     *ops.Stats
	logger    zerolog.Logger

	maxAttempts int
	backoffBase time.Duration
	runBudget   time.Duration
	alertsOn    bool
}

// New constructs the compliance service. The archive stores may be nil
// when no local archive is configured; sched may be nil for one-shot use.
func New(cfg *config.Config, sched *scheduler.Scheduler, contracts fetcher.ContractSource, probes fetcher.ProbeSource, notifier alerting.Notifier, outcomes archive.OutcomeStore, alertLog archive.AlertLogStore, types checks.TypeTable, logger zerolog.Logger) *Service {
	s := &Service{
		scheduler:   sched,
		contracts:   contracts,
		probes:      probes,
		schema:      checks.NewSchemaValidator(types),
		quality:     checks.NewQualityEvaluator(),
		gate:        alerting.NewGate(cfg.Alerting.Cooldown),
		notifier:    notifier,
		outcomes:    outcomes,
		alertLog:    alertLog,
		stats:       ops.NewStats(),
		logger:      logger.With().Str("component", "service").Logger(),
		maxAttempts: cfg.Retry.MaxAttempts,
		backoffBase: cfg.Retry.BackoffBase,
		runBudget:   cfg.Run.Budget,
		alertsOn:    cfg.Alerting.Enabled,
	}

	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}
	if s.backoffBase <= 0 {
		s.backoffBase = time.Minute
	}
	if s.runBudget <= 0 {
		s.runBudget = 5 * time.Minute
	}

	s.pool = dispatch.New(dispatch.Options{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
	}, s.ExecuteTask, logger)

	return s
}

// Stats exposes the run counters for the ops endpoint.
func (s *Service) Stats() *ops.Stats {
	return s.stats
}

// QueueInfo reports the dispatch queue state for the ops endpoint.
func (s *Service) QueueInfo() ops.QueueInfo {
	return ops.QueueInfo{
		Depth:    s.pool.QueueDepth(),
		Capacity: s.pool.Capacity(),
		Dropped:  s.pool.Dropped(),
	}
}

// Run starts the worker pool and blocks on the sweep scheduler.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	s.pool.Start(ctx)
	defer s.pool.Stop()

	return s.scheduler.Run(ctx, scheduler.Sweeps{
		Schema:       s.sweepFunc(contract.CheckSchema),
		Quality:      s.sweepFunc(contract.CheckQuality),
		Availability: s.sweepFunc(contract.CheckAvailability),
	})
}

func (s *Service) sweepFunc(checkType string) scheduler.SweepFunc {
	return func(ctx context.Context, now time.Time) error {
		return s.Sweep(ctx, checkType, now)
	}
}

// Sweep lists active contracts and enqueues one task per eligible one.
func (s *Service) Sweep(ctx context.Context, checkType string, now time.Time) error {
	snapshots, err := s.contracts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active contracts: %w", err)
	}

	submitted, dropped, skipped := 0, 0, 0
	for _, snap := range snapshots {
		if !eligible(snap, checkType) {
			skipped++
			continue
		}
		task := dispatch.Task{
			ContractID:   snap.ID,
			ContractName: snap.Name,
			CheckType:    checkType,
			Attempt:      1,
			EnqueuedAt:   now,
		}
		if s.pool.Submit(task) {
			submitted++
		} else {
			dropped++
		}
	}

	s.stats.IncSweep(checkType, submitted)
	s.logger.Info().
		Str("check_type", checkType).
		Int("submitted", submitted).
		Int("dropped", dropped).
		Int("skipped", skipped).
		Msg("sweep enqueued")
	return nil
}

// eligible reports whether a contract should receive a check of the given
// type. Schema and availability sweeps cover every monitorable contract;
// a quality sweep needs at least one non-availability rule to evaluate.
func eligible(snap contract.Snapshot, checkType string) bool {
	if !snap.Monitorable() {
		return false
	}
	if checkType != contract.CheckQuality {
		return true
	}
	rules, _ := checks.SplitRules(snap.QualityRules)
	return len(rules) > 0
}

// CheckNow runs one check synchronously. ref is a contract id or name.
// When record is set the outcome is written back and routed through the
// alert gate like a scheduled run.
func (s *Service) CheckNow(ctx context.Context, ref, checkType string, record bool) (contract.Outcome, error) {
	snap, err := s.resolveContract(ctx, ref)
	if err != nil {
		return contract.Outcome{}, err
	}
	if !snap.Monitorable() {
		return contract.Outcome{}, fmt.Errorf("contract %q has no access endpoint to check", snap.Name)
	}

	out, err := s.checkSnapshot(ctx, snap, checkType)
	if err != nil {
		return contract.Outcome{}, err
	}

	if record {
		s.persist(ctx, out)
		s.evaluateAlert(ctx, &snap, out)
	}
	return out, nil
}

func (s *Service) resolveContract(ctx context.Context, ref string) (contract.Snapshot, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.contracts.Get(ctx, id.String())
	}

	snapshots, err := s.contracts.ListActive(ctx)
	if err != nil {
		return contract.Snapshot{}, fmt.Errorf("list active contracts: %w", err)
	}
	for _, snap := range snapshots {
		if snap.Name == ref {
			return snap, nil
		}
	}
	return contract.Snapshot{}, fmt.Errorf("contract %q not found among active contracts", ref)
}

// SweepResult summarises one manual sweep.
type SweepResult struct {
	Processed int
	Failed    int
	Skipped   int
}

// SweepOnce runs one synchronous sweep with its own worker fan-out,
// bypassing the scheduler and the dispatch queue. In dry-run mode checks
// still execute but nothing is recorded and no alert fires.
func (s *Service) SweepOnce(ctx context.Context, checkType string, workers int, dryRun bool) (SweepResult, error) {
	snapshots, err := s.contracts.ListActive(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list active contracts: %w", err)
	}

	var result SweepResult
	targets := make([]contract.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if eligible(snap, checkType) {
			targets = append(targets, snap)
		} else {
			result.Skipped++
		}
	}

	if workers <= 0 {
		workers = 4
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	jobs := make(chan contract.Snapshot)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range jobs {
				out, err := s.checkSnapshot(ctx, snap, checkType)
				if err != nil {
					s.logger.Error().Err(err).
						Str("contract", snap.Name).
						Str("check_type", checkType).
						Msg("check failed")
					mu.Lock()
					result.Failed++
					mu.Unlock()
					continue
				}
				if !dryRun {
					s.persist(ctx, out)
					s.evaluateAlert(ctx, &snap, out)
				}
				mu.Lock()
				result.Processed++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, snap := range targets {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- snap:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
