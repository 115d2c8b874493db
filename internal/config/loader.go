// Package config provides centralized configuration management for
// gramsift. Configuration merges three layers:
// Layer 1: built-in defaults
// Layer 2: user overrides (~/.config/gramsift/config.yaml)
// Layer 3: environment variables and runtime overrides
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/gramsift/gramsift/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load loads configuration using the three-layer pattern. It is safe to
// call multiple times (e.g., for config reload).
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	// Layer 1: built-in defaults.
	merged := defaultValues()

	// Layer 2: first readable user config file wins.
	for _, path := range getUserConfigPaths() {
		data, err := os.ReadFile(path) // #nosec G304 -- paths come from XDG discovery
		if err != nil {
			continue
		}
		var fileValues map[string]any
		if err := yaml.Unmarshal(data, &fileValues); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		applyOverrides(merged, fileValues)
		break
	}

	// Layer 3: environment variables, then runtime overrides.
	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	applyOverrides(merged, envOverrides)
	for _, overrides := range runtimeOverrides {
		applyOverrides(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// defaultValues returns the built-in configuration defaults. Durations
// are expressed as strings and converted by the mapstructure hook, which
// keeps the shape identical to what env vars and YAML files supply.
func defaultValues() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":             "localhost",
			"port":             8080,
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "120s",
			"shutdown_timeout": "10s",
		},
		"store": map[string]any{
			"driver": "libsql",
		},
		"gateway": map[string]any{
			"url":     "http://localhost:8700",
			"timeout": "60s",
		},
		"embed": map[string]any{
			"provider":   "ollama",
			"base_url":   "http://localhost:11434",
			"model":      "nomic-embed-text",
			"dimensions": 768,
			"batch":      32,
		},
		"index": map[string]any{
			"addr":       "localhost:6334",
			"collection": "gramsift_messages",
		},
		"logging": map[string]any{
			"level":   "info",
			"profile": "SIMPLE",
		},
		"metrics": map[string]any{
			"enabled": true,
			"port":    9090,
		},
		"health": map[string]any{
			"enabled": true,
		},
		"debug": map[string]any{
			"enabled":       false,
			"pprof_enabled": false,
		},
	}
}

// applyOverrides deep-merges overrides into target; scalar values win.
func applyOverrides(target map[string]any, overrides map[string]any) {
	for key, value := range overrides {
		if nested, ok := value.(map[string]any); ok {
			existing, ok := target[key].(map[string]any)
			if !ok {
				existing = map[string]any{}
				target[key] = existing
			}
			applyOverrides(existing, nested)
			continue
		}
		target[key] = value
	}
}

// getUserConfigPaths returns the list of user config file paths to check
// Uses gofulmen/config for XDG-compliant path discovery
func getUserConfigPaths() []string {
	if appIdentity == nil {
		return []string{}
	}

	appName := appIdentity.ConfigName
	if strings.TrimSpace(appName) == "" {
		appName = appIdentity.BinaryName
	}
	if strings.TrimSpace(appName) == "" {
		appName = "gramsift"
	}

	legacyNames := []string{}
	if appIdentity.BinaryName != "" && appIdentity.BinaryName != appName {
		legacyNames = append(legacyNames, appIdentity.BinaryName)
	}

	return gfconfig.GetAppConfigPaths(appName, legacyNames...)
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	if appIdentity == nil {
		return []EnvVarSpec{}
	}

	prefix := appIdentity.EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Gateway config
		{Name: prefix + "GATEWAY_URL", Path: []string{"gateway", "url"}, Type: EnvString},
		{Name: prefix + "GATEWAY_TOKEN", Path: []string{"gateway", "token"}, Type: EnvString},
		{Name: prefix + "GATEWAY_TIMEOUT", Path: []string{"gateway", "timeout"}, Type: EnvString},

		// Scrape pacing and quotas
		{Name: prefix + "SCRAPE_SOURCES", Path: []string{"scrape", "sources"}, Type: EnvString},
		{Name: prefix + "SCRAPE_KEYWORDS", Path: []string{"scrape", "keywords"}, Type: EnvString},
		{Name: prefix + "SCRAPE_RATE_LIMIT_DELAY", Path: []string{"scrape", "rate_limit_delay"}, Type: EnvString},
		{Name: prefix + "SCRAPE_BATCH_SIZE", Path: []string{"scrape", "batch_size"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_BATCH_DELAY", Path: []string{"scrape", "batch_delay"}, Type: EnvString},
		{Name: prefix + "SCRAPE_MAX_RETRIES", Path: []string{"scrape", "max_retries"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_MAX_BATCHES_PER_SOURCE", Path: []string{"scrape", "max_batches_per_source"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_MAX_BATCHES_BULK", Path: []string{"scrape", "max_batches_bulk"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_SOURCE_DELAY", Path: []string{"scrape", "source_delay"}, Type: EnvString},
		{Name: prefix + "SCRAPE_DAILY_LIMIT", Path: []string{"scrape", "daily_limit"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_HOURLY_LIMIT", Path: []string{"scrape", "hourly_limit"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_MAX_SOURCES_PER_DAY", Path: []string{"scrape", "max_sources_per_day"}, Type: EnvInt},
		{Name: prefix + "SCRAPE_COOLDOWN_PERIOD", Path: []string{"scrape", "cooldown_period"}, Type: EnvString},

		// Embedding config
		{Name: prefix + "EMBED_PROVIDER", Path: []string{"embed", "provider"}, Type: EnvString},
		{Name: prefix + "EMBED_BASE_URL", Path: []string{"embed", "base_url"}, Type: EnvString},
		{Name: prefix + "EMBED_MODEL", Path: []string{"embed", "model"}, Type: EnvString},
		{Name: prefix + "EMBED_API_KEY", Path: []string{"embed", "api_key"}, Type: EnvString},
		{Name: prefix + "EMBED_DIMENSIONS", Path: []string{"embed", "dimensions"}, Type: EnvInt},

		// Index config
		{Name: prefix + "INDEX_ADDR", Path: []string{"index", "addr"}, Type: EnvString},
		{Name: prefix + "INDEX_COLLECTION", Path: []string{"index", "collection"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}

// appNamesForPaths returns the config name and binary name from app
// identity, falling back to "gramsift" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "gramsift"
	binaryName = "gramsift"
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppCacheDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
