// Package ops exposes the monitor's operational surface: liveness and a
// status snapshot of counters maintained by the scheduler, executor and
// alert gate.
package ops

import (
	"sync"
	"time"
)

// SweepStats tracks one check type's sweep loop.
type SweepStats struct {
	Runs     int64     `json:"runs"`
	Enqueued int64     `json:"enqueued"`
	LastRun  time.Time `json:"last_run"`
}

// Stats aggregates run counters. All methods are safe for concurrent use.
type Stats struct {
	mu               sync.Mutex
	startedAt        time.Time
	sweeps           map[string]*SweepStats
	outcomes         map[string]int64
	retries          int64
	alertsFired      int64
	alertsSuppressed int64
	recordFailures   int64
}

// NewStats constructs an empty counter set anchored at now.
func NewStats() *Stats {
	return &Stats{
		startedAt: time.Now().UTC(),
		sweeps:    make(map[string]*SweepStats),
		outcomes:  make(map[string]int64),
	}
}

// IncSweep counts one sweep of the given check type and the tasks it
// enqueued.
func (s *Stats) IncSweep(checkType string, enqueued int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sweep, ok := s.sweeps[checkType]
	if !ok {
		sweep = &SweepStats{}
		s.sweeps[checkType] = sweep
	}
	sweep.Runs++
	sweep.Enqueued += int64(enqueued)
	sweep.LastRun = time.Now().UTC()
}

// IncOutcome counts one recorded check outcome by status.
func (s *Stats) IncOutcome(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[status]++
}

// IncRetry counts one retry re-enqueue.
func (s *Stats) IncRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
}

// IncAlertFired counts one alert that passed the gate.
func (s *Stats) IncAlertFired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertsFired++
}

// IncAlertSuppressed counts one alert held back by the cooldown window.
func (s *Stats) IncAlertSuppressed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertsSuppressed++
}

// IncRecordFailure counts one outcome the registry refused to record.
func (s *Stats) IncRecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordFailures++
}

// Snapshot is the JSON shape served by the status endpoint.
type Snapshot struct {
	UptimeSeconds    float64               `json:"uptime_seconds"`
	Sweeps           map[string]SweepStats `json:"sweeps"`
	Outcomes         map[string]int64      `json:"outcomes"`
	Retries          int64                 `json:"retries"`
	AlertsFired      int64                 `json:"alerts_fired"`
	AlertsSuppressed int64                 `json:"alerts_suppressed"`
	RecordFailures   int64                 `json:"record_failures"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sweeps := make(map[string]SweepStats, len(s.sweeps))
	for k, v := range s.sweeps {
		sweeps[k] = *v
	}
	outcomes := make(map[string]int64, len(s.outcomes))
	for k, v := range s.outcomes {
		outcomes[k] = v
	}

	return Snapshot{
		UptimeSeconds:    time.Since(s.startedAt).Seconds(),
		Sweeps:           sweeps,
		Outcomes:         outcomes,
		Retries:          s.retries,
		AlertsFired:      s.alertsFired,
		AlertsSuppressed: s.alertsSuppressed,
		RecordFailures:   s.recordFailures,
	}
}
