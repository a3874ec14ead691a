package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"contract-compliance-monitor/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Run       RunConfig       `mapstructure:"run"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Checks    ChecksConfig    `mapstructure:"checks"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// RegistryConfig covers contract registry access.
type RegistryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PageSize       int           `mapstructure:"page_size"`
}

// NotifierConfig covers the notification service. An empty base URL
// routes alerts to the structured log instead.
type NotifierConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ProbeConfig covers provider monitoring endpoints.
type ProbeConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SchedulerConfig governs sweep cadence per check type.
type SchedulerConfig struct {
	SchemaInterval       time.Duration `mapstructure:"schema_interval"`
	QualityInterval      time.Duration `mapstructure:"quality_interval"`
	AvailabilityInterval time.Duration `mapstructure:"availability_interval"`
	StartupDelay         time.Duration `mapstructure:"startup_delay"`
}

// DispatchConfig sizes the worker pool and its queue.
type DispatchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// RetryConfig bounds per-task retries.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// RunConfig bounds one check run across all its attempts.
type RunConfig struct {
	Budget time.Duration `mapstructure:"budget"`
}

// AlertingConfig defines alert routing and deduplication.
type AlertingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// ChecksConfig tunes the validators.
type ChecksConfig struct {
	TypeTable string `mapstructure:"type_table"`
}

// ArchiveConfig encapsulates the local outcome archive. A zero alert
// retention disables pruning of the alert audit trail.
type ArchiveConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AlertRetention  time.Duration `mapstructure:"alert_retention"`
}

// OpsConfig exposes the operational HTTP listener.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PACTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pactwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("registry.base_url", "http://contract-service:8000")
	v.SetDefault("registry.request_timeout", "30s")
	v.SetDefault("registry.page_size", 100)

	v.SetDefault("notifier.request_timeout", "10s")

	v.SetDefault("probe.request_timeout", "30s")

	v.SetDefault("scheduler.schema_interval", "5m")
	v.SetDefault("scheduler.quality_interval", "15m")
	v.SetDefault("scheduler.availability_interval", "1m")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("dispatch.workers", 8)
	v.SetDefault("dispatch.queue_size", 256)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_base", "60s")

	v.SetDefault("run.budget", "5m")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.cooldown", "15m")

	v.SetDefault("archive.driver", "postgres")
	v.SetDefault("archive.max_open_conns", 10)
	v.SetDefault("archive.max_idle_conns", 5)
	v.SetDefault("archive.conn_max_lifetime", "30m")
	v.SetDefault("archive.alert_retention", "720h")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Registry.PageSize <= 0 || c.Registry.PageSize > 500 {
		return fmt.Errorf("registry.page_size must be between 1 and 500")
	}
	if c.Scheduler.SchemaInterval <= 0 {
		return fmt.Errorf("scheduler.schema_interval must be greater than zero")
	}
	if c.Scheduler.QualityInterval <= 0 {
		return fmt.Errorf("scheduler.quality_interval must be greater than zero")
	}
	if c.Scheduler.AvailabilityInterval <= 0 {
		return fmt.Errorf("scheduler.availability_interval must be greater than zero")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be greater than zero")
	}
	if c.Run.Budget <= 0 {
		return fmt.Errorf("run.budget must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	switch c.Archive.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown archive.driver %q", c.Archive.Driver)
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
