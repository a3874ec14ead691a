package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/alerting"
	"contract-compliance-monitor/internal/archive"
	"contract-compliance-monitor/internal/archive/postgres"
	"contract-compliance-monitor/internal/archive/sqlite"
	"contract-compliance-monitor/internal/checks"
	"contract-compliance-monitor/internal/config"
	"contract-compliance-monitor/internal/fetcher"
	"contract-compliance-monitor/internal/ops"
	"contract-compliance-monitor/internal/scheduler"
	"contract-compliance-monitor/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSources() (fetcher.ContractSource, fetcher.ProbeSource) {
	registry := fetcher.NewRegistry(fetcher.RegistryOptions{
		BaseURL:  a.Config.Registry.BaseURL,
		Timeout:  a.Config.Registry.RequestTimeout,
		PageSize: a.Config.Registry.PageSize,
	}, a.Logger)

	probes := fetcher.NewProvider(fetcher.ProviderOptions{
		Timeout: a.Config.Probe.RequestTimeout,
	}, a.Logger)

	return registry, probes
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Notifier.BaseURL != "" {
		return alerting.NewEventNotifier(a.Config.Notifier.BaseURL, a.Config.Notifier.RequestTimeout, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) openArchive(ctx context.Context) (archive.Store, func(), error) {
	if a.Config.Archive.DSN == "" {
		return nil, nil, nil
	}

	var store archive.Store
	var err error
	switch a.Config.Archive.Driver {
	case "sqlite":
		store, err = sqlite.New(ctx, a.Config.Archive.DSN)
	default:
		store, err = postgres.New(ctx, postgres.Options{
			DSN:             a.Config.Archive.DSN,
			MaxOpenConns:    a.Config.Archive.MaxOpenConns,
			MaxIdleConns:    a.Config.Archive.MaxIdleConns,
			ConnMaxLifetime: a.Config.Archive.ConnMaxLifetime,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(sched *scheduler.Scheduler, store archive.Store) (*service.Service, error) {
	var types checks.TypeTable
	if path := a.Config.Checks.TypeTable; path != "" {
		loaded, err := checks.LoadTypeTable(path)
		if err != nil {
			return nil, err
		}
		types = loaded
	}

	contracts, probes := a.newSources()

	var outcomes archive.OutcomeStore
	var alertLog archive.AlertLogStore
	if store != nil {
		outcomes = store
		alertLog = store
	}

	return service.New(a.Config, sched, contracts, probes, a.newNotifier(), outcomes, alertLog, types, a.Logger), nil
}

// Run executes the long-running compliance monitor.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openArchive(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("archive.dsn not configured; local archive disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if store != nil {
		if retention := a.Config.Archive.AlertRetention; retention > 0 {
			if err := store.DeleteAlertsBefore(ctx, time.Now().UTC().Add(-retention)); err != nil {
				a.Logger.Warn().Err(err).Msg("failed to prune alert archive")
			}
		}
	}

	sched := scheduler.New(scheduler.Options{
		SchemaInterval:       a.Config.Scheduler.SchemaInterval,
		QualityInterval:      a.Config.Scheduler.QualityInterval,
		AvailabilityInterval: a.Config.Scheduler.AvailabilityInterval,
		StartupDelay:         a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc, err := a.newService(sched, store)
	if err != nil {
		return err
	}

	if addr := a.Config.Ops.ListenAddr; addr != "" {
		opsServer := ops.NewServer(addr, svc.Stats(), svc.QueueInfo, a.Logger)
		go func() {
			if err := opsServer.Run(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("ops server terminated with error")
			}
		}()
	}

	a.Logger.Info().Msg("starting compliance monitor")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("compliance monitor stopped")
	return nil
}

// SweepOptions configure a one-shot sweep.
type SweepOptions struct {
	CheckType string
	Workers   int
	DryRun    bool
}

// CheckOptions configure a single immediate check.
type CheckOptions struct {
	Contract  string
	CheckType string
	Record    bool
}

// ShowOptions configure the show command. Alerts switches the listing
// from archived outcomes to the fired-alert audit trail.
type ShowOptions struct {
	Contract  string
	CheckType string
	Limit     int
	Alerts    bool
}

// ExportOptions hold parameters for exporting archived outcomes.
type ExportOptions struct {
	Contract  string
	CheckType string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions configure the simulate-alert command.
type SimulateOptions struct {
	Contract  string
	CheckType string
	Errors    []string
}
