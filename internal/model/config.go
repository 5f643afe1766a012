package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// IMAPConfig holds the mailbox server settings shared by all accounts.
type IMAPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`

	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`

	// Folder is the mailbox searched for bank notifications.
	Folder string `mapstructure:"folder" yaml:"folder"`

	// TimeoutSec bounds every network round trip.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns TimeoutSec as a duration.
func (c IMAPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// IngestConfig controls the periodic ingestion scheduler.
type IngestConfig struct {
	// IntervalSec is how often every account is scanned.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`

	// Workers is the number of accounts scanned in parallel.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// PassTimeoutSec bounds a whole ingestion pass for one account.
	PassTimeoutSec int `mapstructure:"pass_timeout_sec" yaml:"pass_timeout_sec"`

	// BanksFile optionally points at extra YAML bank definitions.
	BanksFile string `mapstructure:"banks_file" yaml:"banks_file"`
}

// Interval returns IntervalSec as a duration.
func (c IngestConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// PassTimeout returns PassTimeoutSec as a duration.
func (c IngestConfig) PassTimeout() time.Duration {
	return time.Duration(c.PassTimeoutSec) * time.Second
}

// BudgetConfig holds budget evaluation settings.
type BudgetConfig struct {
	// NotifyFraction is the share of the budget amount that must be spent
	// before a warning is raised (1.0 = the full budget).
	NotifyFraction float64 `mapstructure:"notify_fraction" yaml:"notify_fraction"`

	// DefaultDurationDays is the window length offered when setting a budget.
	DefaultDurationDays int `mapstructure:"default_duration_days" yaml:"default_duration_days"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	IMAP     IMAPConfig     `mapstructure:"imap" yaml:"imap"`
	Ingest   IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Budget   BudgetConfig   `mapstructure:"budget" yaml:"budget"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/goalguardian, falling back to the working
// directory when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "goalguardian")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/goalguardian/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir(), "guardian.db"),
		},
		IMAP: IMAPConfig{
			Host:       "imap.gmail.com",
			Port:       "993",
			TLS:        true,
			Folder:     "INBOX",
			TimeoutSec: 30,
		},
		Ingest: IngestConfig{
			IntervalSec:    3600,
			Workers:        4,
			PassTimeoutSec: 120,
		},
		Budget: BudgetConfig{
			NotifyFraction:      1.0,
			DefaultDurationDays: 30,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// setDefaults registers every default with v so missing keys resolve to
// the same values as DefaultAppConfig.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("imap.host", d.IMAP.Host)
	v.SetDefault("imap.port", d.IMAP.Port)
	v.SetDefault("imap.tls", d.IMAP.TLS)
	v.SetDefault("imap.folder", d.IMAP.Folder)
	v.SetDefault("imap.timeout_sec", d.IMAP.TimeoutSec)
	v.SetDefault("ingest.interval_sec", d.Ingest.IntervalSec)
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.pass_timeout_sec", d.Ingest.PassTimeoutSec)
	v.SetDefault("ingest.banks_file", "")
	v.SetDefault("budget.notify_fraction", d.Budget.NotifyFraction)
	v.SetDefault("budget.default_duration_days", d.Budget.DefaultDurationDays)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
}

// envKeyReplacer maps nested keys to environment variable names.
var envKeyReplacer = strings.NewReplacer(".", "_")

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed with GUARDIAN_ override file values
// (e.g. GUARDIAN_IMAP_HOST).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("guardian")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks settings that have no usable zero value.
func (c *AppConfig) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must be set")
	}
	if c.IMAP.Host == "" || c.IMAP.Port == "" {
		return fmt.Errorf("imap.host and imap.port must be set")
	}
	if c.IMAP.TimeoutSec <= 0 {
		return fmt.Errorf("imap.timeout_sec must be positive, got %d", c.IMAP.TimeoutSec)
	}
	if c.Ingest.IntervalSec <= 0 {
		return fmt.Errorf("ingest.interval_sec must be positive, got %d", c.Ingest.IntervalSec)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Ingest.PassTimeoutSec <= 0 {
		return fmt.Errorf("ingest.pass_timeout_sec must be positive, got %d", c.Ingest.PassTimeoutSec)
	}
	if c.Budget.NotifyFraction <= 0 {
		return fmt.Errorf("budget.notify_fraction must be positive, got %v", c.Budget.NotifyFraction)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("imap", cfg.IMAP)
	v.Set("ingest", cfg.Ingest)
	v.Set("budget", cfg.Budget)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
