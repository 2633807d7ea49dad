package cli

import (
	"fmt"
	"net/http"

	"feastsched/internal/calendar"
	"feastsched/internal/config"
	appLog "feastsched/internal/log"
	"feastsched/internal/schedule"
	"feastsched/internal/store"
)

// app is the wired dependency set shared by the commands.
type app struct {
	cfg       *config.Config
	store     *store.Store
	fetcher   *calendar.Fetcher
	generator *schedule.Generator
}

// loadConfig reads the YAML config, applies the env overrides and sets the
// log level.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(opts.EnvFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := appLog.ParseLevel(cfg.LogLevel)
	if err != nil {
		appLog.Warn("unknown log level; using info", "log_level", cfg.LogLevel)
	}
	if opts.Verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

// newApp opens the store and builds the calendar client and generator.
// Callers must call close.
func newApp(opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Calendar.BaseURL == "" {
		appLog.Warn("calendar.base_url is empty; generation will abort until it is set")
	}
	fetcher := calendar.NewFetcher(cfg.Calendar.BaseURL, cfg.Calendar.Version,
		calendar.WithHTTPClient(&http.Client{Timeout: cfg.Calendar.Timeout()}),
		calendar.WithCache(calendar.NewMemoryCache(cfg.Calendar.MemoryTTL())),
		calendar.WithCacheDir(cfg.Calendar.CacheDir),
	)

	gen := schedule.NewGenerator(st, fetcher, schedule.Options{
		TemplateLimit: cfg.Generation.TemplateLimit,
		Concurrency:   cfg.Generation.Concurrency,
		Fallback:      cfg.Location(),
	})

	return &app{cfg: cfg, store: st, fetcher: fetcher, generator: gen}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		appLog.Error("store close failed", err)
	}
}
