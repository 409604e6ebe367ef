// Package config provides configuration management for the price tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Collector CollectorConfig `mapstructure:"collector"`
	Alerts    AlertConfig     `mapstructure:"alerts"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	RunToken string `mapstructure:"run_token"` // bearer token required on POST /run
}

// CollectorConfig holds collection run configuration.
type CollectorConfig struct {
	Stores      []string      `mapstructure:"stores"`
	APITimeout  time.Duration `mapstructure:"api_timeout"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	HostDelay   time.Duration `mapstructure:"host_delay"` // minimum gap between page fetches to one host
	SearchLimit int           `mapstructure:"search_limit"`
}

// AlertConfig holds price-drop alert configuration.
type AlertConfig struct {
	ThresholdPct float64 `mapstructure:"threshold_pct"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/price-tracker"
	}
	return filepath.Join(home, ".config", "price-tracker")
}

// Default returns the default configuration.
func Default() *Config {
	dir := DefaultConfigDir()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "prices.db"),
		},
		Server: ServerConfig{
			Port:     8080,
			RunToken: "changeme",
		},
		Collector: CollectorConfig{
			Stores: []string{
				models.StoreFalabella,
				models.StoreParis,
				models.StoreRipley,
				models.StoreMercadoLibre,
				models.StoreSodimac,
			},
			APITimeout:  15 * time.Second,
			PageTimeout: 30 * time.Second,
			SettleDelay: 2 * time.Second,
			HostDelay:   1 * time.Second,
			SearchLimit: 1,
		},
		Alerts: AlertConfig{
			ThresholdPct: 5.0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			File:       true,
			FilePath:   filepath.Join(dir, "logs", "tracker.log"),
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return nil, fmt.Errorf("creating config template: %w", err)
			}
		} else {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("collector.stores", cfg.Collector.Stores)
	v.SetDefault("collector.api_timeout", cfg.Collector.APITimeout)
	v.SetDefault("collector.page_timeout", cfg.Collector.PageTimeout)
	v.SetDefault("collector.settle_delay", cfg.Collector.SettleDelay)
	v.SetDefault("collector.host_delay", cfg.Collector.HostDelay)
	v.SetDefault("collector.search_limit", cfg.Collector.SearchLimit)
	v.SetDefault("alerts.threshold_pct", cfg.Alerts.ThresholdPct)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRACKER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Server.RunToken = v
	}
	if v := os.Getenv("TRACKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", apperrors.ErrConfigInvalid)
	}
	if c.Collector.SearchLimit < 1 {
		return fmt.Errorf("%w: collector.search_limit must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Alerts.ThresholdPct < 0 {
		return fmt.Errorf("%w: alerts.threshold_pct must be non-negative", apperrors.ErrConfigInvalid)
	}
	for _, store := range c.Collector.Stores {
		if _, ok := models.StoreLabels[store]; !ok {
			return fmt.Errorf("%w: unknown store in collector.stores: %s", apperrors.ErrConfigInvalid, store)
		}
	}
	return nil
}
