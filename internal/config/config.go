package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// CalendarConfig points at the external liturgical-calendar provider.
type CalendarConfig struct {
	// BaseURL is the provider root; requests go to {BaseURL}/api/v{Version}/calendar/{year}.
	BaseURL string `yaml:"base_url" json:"base_url"`
	Version int    `yaml:"version" json:"version"`
	// CacheDir holds one subdirectory per calendar year URL.
	CacheDir       string `yaml:"cache_dir" json:"cache_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	// MemoryTTLMinutes bounds the in-process cache; 0 keeps entries forever.
	MemoryTTLMinutes int `yaml:"memory_ttl_minutes" json:"memory_ttl_minutes"`
}

// Timeout returns the HTTP client timeout.
func (c CalendarConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MemoryTTL returns the in-process cache TTL (0 = forever).
func (c CalendarConfig) MemoryTTL() time.Duration {
	return time.Duration(c.MemoryTTLMinutes) * time.Minute
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// GenerationConfig tunes the weekly generation run and its scheduled jobs.
type GenerationConfig struct {
	TemplateLimit int `yaml:"template_limit" json:"template_limit"`
	Concurrency   int `yaml:"concurrency" json:"concurrency"`
	// AutoWeekCron creates next week's ServiceWeek for auto-generating tenants.
	// Empty disables the job.
	AutoWeekCron string `yaml:"auto_week_cron" json:"auto_week_cron"`
	// PrefetchCron warms the calendar cache for the current and next year.
	PrefetchCron string `yaml:"prefetch_cron" json:"prefetch_cron"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for tenants that do not set their own.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Calendar   CalendarConfig   `yaml:"calendar" json:"calendar"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "Europe/Warsaw"
	defaultCacheDir      = "/var/lib/feastsched/calendar-cache"
	defaultDSN           = "/var/lib/feastsched/feastsched.db"
	defaultTemplateLimit = 1000
	defaultConcurrency   = 4
	defaultAutoWeekCron  = "0 3 * * 0"
	defaultPrefetchCron  = "0 4 1 * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		Timezone: defaultTimezone,
		LogLevel: "info",
		Calendar: CalendarConfig{
			Version:        1,
			CacheDir:       defaultCacheDir,
			TimeoutSeconds: 15,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    defaultDSN,
		},
		Generation: GenerationConfig{
			TemplateLimit: defaultTemplateLimit,
			Concurrency:   defaultConcurrency,
			AutoWeekCron:  defaultAutoWeekCron,
			PrefetchCron:  defaultPrefetchCron,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Calendar.BaseURL = strings.TrimRight(strings.TrimSpace(c.Calendar.BaseURL), "/")
	if c.Calendar.Version <= 0 {
		c.Calendar.Version = 1
	}
	if c.Calendar.CacheDir == "" {
		c.Calendar.CacheDir = defaultCacheDir
	}
	if c.Calendar.TimeoutSeconds <= 0 {
		c.Calendar.TimeoutSeconds = 15
	}
	if c.Calendar.MemoryTTLMinutes < 0 {
		c.Calendar.MemoryTTLMinutes = 0
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		// Unknown value; fall back to the embedded database.
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = defaultDSN
	}
	if c.Generation.TemplateLimit <= 0 {
		c.Generation.TemplateLimit = defaultTemplateLimit
	}
	if c.Generation.Concurrency <= 0 {
		c.Generation.Concurrency = defaultConcurrency
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	for name, spec := range map[string]string{
		"generation.auto_week_cron": c.Generation.AutoWeekCron,
		"generation.prefetch_cron":  c.Generation.PrefetchCron,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is empty")
	}
	return nil
}

// Environment variables applied on top of the YAML file.
const (
	EnvListen      = "FEASTSCHED_LISTEN"
	EnvTimezone    = "FEASTSCHED_TIMEZONE"
	EnvCalendarURL = "FEASTSCHED_CALENDAR_URL"
	EnvDBDriver    = "FEASTSCHED_DB_DRIVER"
	EnvDBDSN       = "FEASTSCHED_DB_DSN"
	EnvLogLevel    = "FEASTSCHED_LOG_LEVEL"
)

// ApplyEnv loads envFile (if it exists) into the process environment and
// overrides config fields from FEASTSCHED_* variables.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	override := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override(EnvListen, &c.Listen)
	override(EnvTimezone, &c.Timezone)
	override(EnvCalendarURL, &c.Calendar.BaseURL)
	override(EnvDBDriver, &c.Database.Driver)
	override(EnvDBDSN, &c.Database.DSN)
	override(EnvLogLevel, &c.LogLevel)
	c.Normalize()
	return nil
}

// Location returns the configured fallback zone, or UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".feastsched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
