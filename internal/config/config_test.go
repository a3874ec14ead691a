package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.Registry.BaseURL != "http://contract-service:8000" {
		t.Fatalf("registry.base_url 默认值不正确: %s", cfg.Registry.BaseURL)
	}
	if cfg.Registry.PageSize != 100 {
		t.Fatalf("registry.page_size 期望 100, 实际 %d", cfg.Registry.PageSize)
	}
	if cfg.Scheduler.SchemaInterval != 5*time.Minute {
		t.Fatalf("scheduler.schema_interval 期望 5m, 实际 %s", cfg.Scheduler.SchemaInterval)
	}
	if cfg.Scheduler.QualityInterval != 15*time.Minute {
		t.Fatalf("scheduler.quality_interval 期望 15m, 实际 %s", cfg.Scheduler.QualityInterval)
	}
	if cfg.Scheduler.AvailabilityInterval != time.Minute {
		t.Fatalf("scheduler.availability_interval 期望 1m, 实际 %s", cfg.Scheduler.AvailabilityInterval)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BackoffBase != time.Minute {
		t.Fatalf("retry 默认值不正确: %+v", cfg.Retry)
	}
	if cfg.Run.Budget != 5*time.Minute {
		t.Fatalf("run.budget 期望 5m, 实际 %s", cfg.Run.Budget)
	}
	if !cfg.Alerting.Enabled || cfg.Alerting.Cooldown != 15*time.Minute {
		t.Fatalf("alerting 默认值不正确: %+v", cfg.Alerting)
	}
	if cfg.Archive.Driver != "postgres" {
		t.Fatalf("archive.driver 期望 postgres, 实际 %s", cfg.Archive.Driver)
	}
	if cfg.Archive.AlertRetention != 720*time.Hour {
		t.Fatalf("archive.alert_retention 期望 720h, 实际 %s", cfg.Archive.AlertRetention)
	}
	if cfg.Dispatch.Workers != 8 || cfg.Dispatch.QueueSize != 256 {
		t.Fatalf("dispatch 默认值不正确: %+v", cfg.Dispatch)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
registry:
  base_url: http://localhost:9000
  page_size: 50
scheduler:
  schema_interval: 30s
alerting:
  enabled: false
archive:
  driver: sqlite
  dsn: pactwatch.db
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置文件失败: %v", err)
	}

	if cfg.Registry.BaseURL != "http://localhost:9000" {
		t.Fatalf("registry.base_url 未覆盖: %s", cfg.Registry.BaseURL)
	}
	if cfg.Registry.PageSize != 50 {
		t.Fatalf("registry.page_size 期望 50, 实际 %d", cfg.Registry.PageSize)
	}
	if cfg.Scheduler.SchemaInterval != 30*time.Second {
		t.Fatalf("scheduler.schema_interval 期望 30s, 实际 %s", cfg.Scheduler.SchemaInterval)
	}
	if cfg.Alerting.Enabled {
		t.Fatal("alerting.enabled 应被覆盖为 false")
	}
	if cfg.Archive.Driver != "sqlite" || cfg.Archive.DSN != "pactwatch.db" {
		t.Fatalf("archive 配置未覆盖: %+v", cfg.Archive)
	}
	if cfg.Scheduler.QualityInterval != 15*time.Minute {
		t.Fatalf("未覆盖的键应保留默认值, 实际 %s", cfg.Scheduler.QualityInterval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	cfg := *base
	cfg.Registry.PageSize = 501
	if err := cfg.Validate(); err == nil {
		t.Fatal("page_size 超限应返回错误")
	}

	cfg = *base
	cfg.Scheduler.QualityInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("quality_interval 为零应返回错误")
	}

	cfg = *base
	cfg.Retry.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("max_attempts 为零应返回错误")
	}

	cfg = *base
	cfg.Run.Budget = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("run.budget 为负应返回错误")
	}

	cfg = *base
	cfg.Archive.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatal("未知 archive.driver 应返回错误")
	}
}
