package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"contract-compliance-monitor/internal/alerting"
	"contract-compliance-monitor/internal/archive"
	"contract-compliance-monitor/internal/checks"
	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/dispatch"
	"contract-compliance-monitor/internal/fetcher"
)

// ExecuteTask is the dispatch pool handler. It runs one check attempt:
// transient failures re-enqueue a delayed retry while attempts and the
// run budget allow, everything else resolves to a recorded outcome.
func (s *Service) ExecuteTask(ctx context.Context, task dispatch.Task) {
	if task.Attempt <= 0 {
		task.Attempt = 1
	}
	if task.StartedAt.IsZero() {
		task.StartedAt = time.Now().UTC()
	}

	logger := s.logger.With().
		Str("contract", task.ContractName).
		Str("check_type", task.CheckType).
		Int("attempt", task.Attempt).
		Logger()

	deadline := task.StartedAt.Add(s.runBudget)
	if !time.Now().UTC().Before(deadline) {
		s.finish(ctx, task, nil, fmt.Errorf("run budget %s exhausted after %d attempt(s)", s.runBudget, task.Attempt-1))
		return
	}

	runCtx, cancel := context.WithDeadline(ctx, deadline)
	snap, outcome, err := s.runCheck(runCtx, task)
	cancel()

	if err != nil {
		if s.shouldRetry(task, err, deadline) {
			delay := s.backoffDelay(task.Attempt)
			logger.Warn().Err(err).Dur("delay", delay).Msg("transient failure, scheduling retry")
			s.stats.IncRetry()
			retry := task
			retry.Attempt++
			s.pool.SubmitAfter(retry, delay)
			return
		}
		s.finish(ctx, task, snap, err)
		return
	}

	if outcome == nil {
		logger.Debug().Msg("contract no longer monitorable, skipping check")
		return
	}

	s.complete(ctx, snap, *outcome)
}

// runCheck refreshes the contract from the registry and executes the
// check. A nil outcome with nil error means the contract lost its access
// endpoint between enqueue and execution and the task should be skipped.
func (s *Service) runCheck(ctx context.Context, task dispatch.Task) (*contract.Snapshot, *contract.Outcome, error) {
	snap, err := s.contracts.Get(ctx, task.ContractID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch contract: %w", err)
	}
	if !snap.Monitorable() {
		return &snap, nil, nil
	}

	out, err := s.checkSnapshot(ctx, snap, task.CheckType)
	if err != nil {
		return &snap, nil, err
	}
	return &snap, &out, nil
}

// checkSnapshot fetches the probe surface for the check type and runs the
// matching validator.
func (s *Service) checkSnapshot(ctx context.Context, snap contract.Snapshot, checkType string) (contract.Outcome, error) {
	endpoint := snap.Access.EndpointURL

	switch checkType {
	case contract.CheckSchema:
		sp, err := s.probes.FetchSchema(ctx, endpoint)
		if err != nil {
			return contract.Outcome{}, fmt.Errorf("fetch schema probe: %w", err)
		}
		result := s.schema.Validate(snap.Fields, sp)
		out := contract.NewOutcome(snap, checkType, contract.CheckPass)
		if !result.Valid {
			out.Status = contract.CheckFail
		}
		out.Errors = result.Errors
		out.Warnings = result.Warnings
		out.Details = result.Details()
		return out, nil

	case contract.CheckQuality:
		mp, err := s.probes.FetchMetrics(ctx, endpoint)
		if err != nil {
			return contract.Outcome{}, fmt.Errorf("fetch metrics probe: %w", err)
		}
		rules, _ := checks.SplitRules(snap.QualityRules)
		return qualityOutcome(snap, checkType, s.quality.Evaluate(rules, snap.Fields, mp)), nil

	case contract.CheckAvailability:
		mp, err := s.probes.FetchMetrics(ctx, endpoint)
		if err != nil {
			return contract.Outcome{}, fmt.Errorf("fetch metrics probe: %w", err)
		}
		_, rules := checks.SplitRules(snap.QualityRules)
		return qualityOutcome(snap, checkType, s.quality.Evaluate(rules, snap.Fields, mp)), nil

	default:
		return contract.Outcome{}, fmt.Errorf("unknown check type %q", checkType)
	}
}

func qualityOutcome(snap contract.Snapshot, checkType string, result checks.QualityResult) contract.Outcome {
	out := contract.NewOutcome(snap, checkType, result.Status)
	out.Errors = result.Errors
	out.Warnings = result.Warnings
	out.Details = result.Details()
	return out
}

// shouldRetry applies the retry policy: transient failures only, bounded
// by max attempts, and the backoff must land inside the run budget.
func (s *Service) shouldRetry(task dispatch.Task, err error, deadline time.Time) bool {
	if !fetcher.IsTransient(err) {
		return false
	}
	if task.Attempt >= s.maxAttempts {
		return false
	}
	return time.Now().UTC().Add(s.backoffDelay(task.Attempt)).Before(deadline)
}

// backoffDelay doubles per attempt: base, 2x base, 4x base, ...
func (s *Service) backoffDelay(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 16 {
		shift = 16
	}
	return s.backoffBase << shift
}

// complete records a finished check and routes it through the alert gate.
func (s *Service) complete(ctx context.Context, snap *contract.Snapshot, out contract.Outcome) {
	s.logger.Info().
		Str("contract", out.ContractName).
		Str("check_type", out.CheckType).
		Str("status", out.Status).
		Int("errors", len(out.Errors)).
		Int("warnings", len(out.Warnings)).
		Msg("check completed")

	s.persist(ctx, out)
	s.evaluateAlert(ctx, snap, out)
}

// finish resolves a task whose check could not produce a result: retries
// exhausted, a permanent failure, or the run budget ran out. The error
// outcome is recorded for the audit trail but never alerts.
func (s *Service) finish(ctx context.Context, task dispatch.Task, snap *contract.Snapshot, cause error) {
	out := contract.Outcome{
		ContractID:   task.ContractID,
		ContractName: task.ContractName,
		CheckType:    task.CheckType,
		Status:       contract.CheckError,
		ErrorMessage: cause.Error(),
		CheckedAt:    time.Now().UTC(),
	}
	if snap != nil {
		out.ContractName = snap.Name
		out.ContractVersion = snap.Version
	}

	s.logger.Error().Err(cause).
		Str("contract", out.ContractName).
		Str("check_type", out.CheckType).
		Int("attempt", task.Attempt).
		Msg("check resolved to error")

	s.persist(ctx, out)
}

// persist records the outcome in the registry and mirrors it into the
// local archive. Recording failures are logged and counted; the outcome
// still proceeds to alert evaluation on its in-memory copy.
func (s *Service) persist(ctx context.Context, out contract.Outcome) {
	if err := s.record(ctx, out); err != nil {
		s.logger.Error().Err(err).
			Str("contract", out.ContractName).
			Str("check_type", out.CheckType).
			Msg("failed to record outcome in registry")
		s.stats.IncRecordFailure()
	}

	s.archiveOutcome(ctx, out)
	s.stats.IncOutcome(out.Status)
}

// record appends the outcome to the contract's history, retrying once.
func (s *Service) record(ctx context.Context, out contract.Outcome) error {
	if err := s.contracts.RecordOutcome(ctx, out); err == nil {
		return nil
	}
	return s.contracts.RecordOutcome(ctx, out)
}

func (s *Service) archiveOutcome(ctx context.Context, out contract.Outcome) {
	if s.outcomes == nil {
		return
	}

	rec := archive.OutcomeRecord{
		ContractID:      out.ContractID,
		ContractName:    out.ContractName,
		ContractVersion: out.ContractVersion,
		CheckType:       out.CheckType,
		Status:          out.Status,
		Details:         marshalDetails(out.Details),
		CheckedAt:       out.CheckedAt,
	}
	if out.ErrorMessage != "" {
		msg := out.ErrorMessage
		rec.ErrorMessage = &msg
	}

	if err := s.outcomes.InsertOutcome(ctx, rec); err != nil && !errors.Is(err, archive.ErrNotConfigured) {
		s.logger.Error().Err(err).
			Str("contract", out.ContractName).
			Msg("failed to archive outcome")
	}
}

func marshalDetails(details map[string]any) json.RawMessage {
	if len(details) == 0 {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return raw
}

// evaluateAlert routes a completed outcome through the dedup gate. Only
// failed checks alert; a pass clears the gate so the next failure fires
// immediately. Warning and error outcomes leave the gate untouched.
// snap enriches the event with publisher contact details when available.
func (s *Service) evaluateAlert(ctx context.Context, snap *contract.Snapshot, out contract.Outcome) {
	switch out.Status {
	case contract.CheckPass:
		s.gate.Clear(out.ContractName, out.CheckType)
		return
	case contract.CheckFail:
	default:
		return
	}

	if !s.alertsOn || s.notifier == nil {
		return
	}

	if !s.gate.ShouldFire(out.ContractName, out.CheckType, out.Status) {
		s.stats.IncAlertSuppressed()
		s.logger.Debug().
			Str("contract", out.ContractName).
			Str("check_type", out.CheckType).
			Msg("alert suppressed by cooldown")
		return
	}
	s.stats.IncAlertFired()

	if s.alertLog != nil {
		rec := archive.AlertRecord{
			ContractID:   out.ContractID,
			ContractName: out.ContractName,
			CheckType:    out.CheckType,
			Status:       out.Status,
			Message:      alertMessage(out),
		}
		if _, err := s.alertLog.InsertAlert(ctx, rec); err != nil && !errors.Is(err, archive.ErrNotConfigured) {
			s.logger.Error().Err(err).
				Str("contract", out.ContractName).
				Msg("failed to persist alert record")
		}
	}

	if err := s.notifier.Notify(ctx, alertEvent(snap, out)); err != nil {
		s.logger.Error().Err(err).
			Str("contract", out.ContractName).
			Str("check_type", out.CheckType).
			Msg("failed to dispatch alert")
	}
}

// Alert pushes a prebuilt outcome through the dedup gate and notifier
// without recording it. Drives the simulate-alert command.
func (s *Service) Alert(ctx context.Context, out contract.Outcome) error {
	if !s.alertsOn || s.notifier == nil {
		return errors.New("alerting disabled or no notifier configured")
	}

	if !s.gate.ShouldFire(out.ContractName, out.CheckType, out.Status) {
		s.stats.IncAlertSuppressed()
		return errors.New("alert suppressed by cooldown window")
	}
	s.stats.IncAlertFired()

	return s.notifier.Notify(ctx, alertEvent(nil, out))
}

func alertEvent(snap *contract.Snapshot, out contract.Outcome) alerting.Event {
	event := alerting.Event{
		ContractID:      out.ContractID,
		ContractName:    out.ContractName,
		ContractVersion: out.ContractVersion,
		CheckType:       out.CheckType,
		Status:          out.Status,
		Errors:          out.Errors,
		Warnings:        out.Warnings,
		ErrorMessage:    out.ErrorMessage,
		Metadata:        out.Details,
		CheckedAt:       out.CheckedAt,
	}
	if snap != nil {
		event.PublisherTeam = snap.PublisherTeam
		event.ContactEmail = snap.ContactEmail
		if snap.Access != nil {
			event.EndpointURL = snap.Access.EndpointURL
		}
	}
	return event
}

func alertMessage(out contract.Outcome) string {
	if len(out.Errors) > 0 {
		return strings.Join(out.Errors, "; ")
	}
	if out.ErrorMessage != "" {
		return out.ErrorMessage
	}
	return fmt.Sprintf("%s check failed", out.CheckType)
}
