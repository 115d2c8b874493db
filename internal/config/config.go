package config

import (
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// Config represents the complete application configuration, merged from
// user config files, environment variables, and runtime overrides.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Embed   EmbedConfig   `mapstructure:"embed"`
	Index   IndexConfig   `mapstructure:"index"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// GatewayConfig points at the scraper gateway sidecar that owns the
// upstream client session.
type GatewayConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScrapeConfig contains the pacing and quota values for scraping runs.
type ScrapeConfig struct {
	Sources  []string `mapstructure:"sources"`
	Keywords []string `mapstructure:"keywords"`

	RateLimitDelay      time.Duration `mapstructure:"rate_limit_delay"`
	BatchSize           int           `mapstructure:"batch_size"`
	BatchDelay          time.Duration `mapstructure:"batch_delay"`
	MaxRetries          int           `mapstructure:"max_retries"`
	MaxBatchesPerSource int           `mapstructure:"max_batches_per_source"`
	MaxBatchesBulk      int           `mapstructure:"max_batches_bulk"`
	SourceDelay         time.Duration `mapstructure:"source_delay"`
	DailyLimit          int           `mapstructure:"daily_limit"`
	HourlyLimit         int           `mapstructure:"hourly_limit"`
	MaxSourcesPerDay    int           `mapstructure:"max_sources_per_day"`
	CooldownPeriod      time.Duration `mapstructure:"cooldown_period"`

	RetryFloor time.Duration `mapstructure:"retry_floor"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// Plan builds a session plan from the configured values, falling back to
// the standard preset for anything left unset.
func (c ScrapeConfig) Plan() core.SessionPlan {
	plan := core.StandardPlan()
	if c.RateLimitDelay > 0 {
		plan.RateLimitDelay = c.RateLimitDelay
	}
	if c.BatchSize > 0 {
		plan.BatchSize = c.BatchSize
	}
	if c.BatchDelay > 0 {
		plan.BatchDelay = c.BatchDelay
	}
	if c.MaxRetries > 0 {
		plan.MaxRetries = c.MaxRetries
	}
	if c.MaxBatchesPerSource > 0 {
		plan.MaxBatchesPerSource = c.MaxBatchesPerSource
	}
	if c.MaxBatchesBulk > 0 {
		plan.MaxBatchesBulk = c.MaxBatchesBulk
	}
	if c.SourceDelay > 0 {
		plan.SourceDelay = c.SourceDelay
	}
	if c.DailyLimit > 0 {
		plan.DailyLimit = c.DailyLimit
	}
	if c.HourlyLimit > 0 {
		plan.HourlyLimit = c.HourlyLimit
	}
	if c.MaxSourcesPerDay > 0 {
		plan.MaxSourcesPerDay = c.MaxSourcesPerDay
	}
	if c.CooldownPeriod > 0 {
		plan.CooldownPeriod = c.CooldownPeriod
	}
	return plan
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
	Batch      int    `mapstructure:"batch"`
}

// IndexConfig configures the Qdrant vector index.
type IndexConfig struct {
	Addr       string `mapstructure:"addr"`
	Collection string `mapstructure:"collection"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
// - ENTERPRISE: Multiple sinks, middleware, throttling, policy enforcement
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
