// Package config loads runtime settings from defaults, an optional config
// file and REPORTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const envPrefix = "REPORTS"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Storage  StorageConfig  `mapstructure:"storage"`
	History  HistoryConfig  `mapstructure:"history"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
	Versions VersionsConfig `mapstructure:"versions"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Blocks   BlocksConfig   `mapstructure:"blocks"`
	MCP      MCPConfig      `mapstructure:"mcp"`
}

type StorageConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type HistoryConfig struct {
	Depth int `mapstructure:"depth"`
}

type AutosaveConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay"`
}

type VersionsConfig struct {
	Retain int `mapstructure:"retain"`
	// SnapshotSchedule is a standard cron expression; empty disables
	// scheduled snapshots.
	SnapshotSchedule string `mapstructure:"snapshot_schedule"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type BlocksConfig struct {
	ChartPalette []string `mapstructure:"chart_palette"`
}

type MCPConfig struct {
	// HTTP mounts the MCP endpoint at /mcp on the serve command.
	HTTP            bool          `mapstructure:"http"`
	AutoApprove     bool          `mapstructure:"auto_approve"`
	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`
}

// DefaultPalette seeds new chart blocks when no palette is configured.
var DefaultPalette = []string{"#2563eb", "#16a34a", "#f59e0b", "#dc2626", "#7c3aed", "#0891b2"}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".reports")
	}
	return ".reports"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.host", "")
	v.SetDefault("storage.port", 0)
	v.SetDefault("storage.user", "")
	v.SetDefault("storage.password", "")
	v.SetDefault("storage.database", "")
	v.SetDefault("storage.ssl_mode", "")
	v.SetDefault("history.depth", 100)
	v.SetDefault("autosave.enabled", true)
	v.SetDefault("autosave.delay", 30*time.Second)
	v.SetDefault("versions.retain", 50)
	v.SetDefault("versions.snapshot_schedule", "")
	v.SetDefault("http.addr", "127.0.0.1:7420")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("blocks.chart_palette", DefaultPalette)
	v.SetDefault("mcp.http", true)
	v.SetDefault("mcp.auto_approve", false)
	v.SetDefault("mcp.approval_timeout", 2*time.Minute)
}

// Load reads configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Storage.Driver == DriverSQLite && cfg.Storage.Path == "" && cfg.Storage.DSN == "" {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "reports.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres, DriverMySQL, DriverMongo:
		if c.Storage.DSN == "" && c.Storage.Host == "" {
			errs = append(errs, fmt.Errorf("storage.host or storage.dsn is required for %s", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres, mysql, mongo", c.Storage.Driver))
	}
	if c.History.Depth < 1 {
		errs = append(errs, fmt.Errorf("history.depth must be at least 1, got %d", c.History.Depth))
	}
	if c.Autosave.Enabled && c.Autosave.Delay <= 0 {
		errs = append(errs, fmt.Errorf("autosave.delay must be positive, got %s", c.Autosave.Delay))
	}
	if c.Versions.Retain < 1 {
		errs = append(errs, fmt.Errorf("versions.retain must be at least 1, got %d", c.Versions.Retain))
	}
	if c.Versions.SnapshotSchedule != "" {
		if _, err := cron.ParseStandard(c.Versions.SnapshotSchedule); err != nil {
			errs = append(errs, fmt.Errorf("versions.snapshot_schedule: %w", err))
		}
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("http.shutdown_timeout must not be negative"))
	}
	if c.MCP.ApprovalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("mcp.approval_timeout must be positive, got %s", c.MCP.ApprovalTimeout))
	}
	return errors.Join(errs...)
}
