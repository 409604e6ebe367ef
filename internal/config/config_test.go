package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero search limit", func(c *Config) { c.Collector.SearchLimit = 0 }},
		{"negative threshold", func(c *Config) { c.Alerts.ThresholdPct = -1 }},
		{"unknown store", func(c *Config) { c.Collector.Stores = []string{"bogus"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Fatalf("Validate = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoad_CreatesTemplateOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("template config not created: %v", err)
	}

	// First run falls back to defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Collector.APITimeout != 15*time.Second {
		t.Errorf("APITimeout = %v, want default 15s", cfg.Collector.APITimeout)
	}
	if len(cfg.Collector.Stores) != len(models.StoreLabels) {
		t.Errorf("Stores = %v, want all supported stores", cfg.Collector.Stores)
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
port = 9090

[collector]
stores = ["falabella", "paris"]
search_limit = 3

[alerts]
threshold_pct = 8.5
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Collector.Stores) != 2 {
		t.Errorf("Stores = %v, want 2 entries", cfg.Collector.Stores)
	}
	if cfg.Collector.SearchLimit != 3 {
		t.Errorf("SearchLimit = %d, want 3", cfg.Collector.SearchLimit)
	}
	if cfg.Alerts.ThresholdPct != 8.5 {
		t.Errorf("ThresholdPct = %v, want 8.5", cfg.Alerts.ThresholdPct)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRACKER_DB_PATH", "/tmp/override.db")
	t.Setenv("PORT", "3000")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Server.RunToken != "s3cret" {
		t.Errorf("RunToken = %q", cfg.Server.RunToken)
	}
}
