package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SweepFunc is invoked on every interval for one check type.
type SweepFunc func(ctx context.Context, now time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	SchemaInterval       time.Duration
	QualityInterval      time.Duration
	AvailabilityInterval time.Duration
	StartupDelay         time.Duration
}

// Sweeps carries the callback for each check type. A nil entry disables
// that loop.
type Sweeps struct {
	Schema       SweepFunc
	Quality      SweepFunc
	Availability SweepFunc
}

// Scheduler drives the periodic compliance sweeps. Each check type runs on
// its own interval loop; a slow sweep never delays the other loops.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.SchemaInterval <= 0 || opts.QualityInterval <= 0 || opts.AvailabilityInterval <= 0 {
		panic("scheduler intervals must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, driving all three sweep loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, sweeps Sweeps) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	var wg sync.WaitGroup
	start := func(checkType string, interval time.Duration, sweep SweepFunc) {
		if sweep == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, checkType, interval, sweep)
		}()
	}

	start("schema", s.opts.SchemaInterval, sweeps.Schema)
	start("quality", s.opts.QualityInterval, sweeps.Quality)
	start("availability", s.opts.AvailabilityInterval, sweeps.Availability)

	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, checkType string, interval time.Duration, sweep SweepFunc) {
	logger := s.logger.With().Str("check_type", checkType).Logger()

	next := time.Now().UTC().Add(interval)
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = time.Now().UTC().Add(interval)
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		logger.Debug().Time("next_sweep", next).Msg("waiting for next sweep")

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			timer.Stop()
		}

		logger.Info().Time("sweep", next).Msg("executing scheduled sweep")
		if err := sweep(ctx, next); err != nil {
			logger.Error().Err(err).Time("sweep", next).Msg("sweep execution failed")
		}

		next = next.Add(interval)
	}
}
