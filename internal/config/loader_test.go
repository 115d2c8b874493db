package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("gramsift"), "gramsift.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)
		assert.Equal(t, "", cfg.Store.AuthToken)

		// Verify gateway defaults
		assert.Equal(t, "http://localhost:8700", cfg.Gateway.URL)
		assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)

		// Verify embed defaults
		assert.Equal(t, "ollama", cfg.Embed.Provider)
		assert.Equal(t, "nomic-embed-text", cfg.Embed.Model)
		assert.Equal(t, 768, cfg.Embed.Dimensions)

		// Verify index defaults
		assert.Equal(t, "localhost:6334", cfg.Index.Addr)
		assert.Equal(t, "gramsift_messages", cfg.Index.Collection)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)

		// Verify metrics defaults
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		// Verify health defaults
		assert.True(t, cfg.Health.Enabled)

		// Verify debug defaults
		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	// Test that an unset scrape section yields the standard session plan
	t.Run("ScrapePlanDefaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)

		plan := cfg.Scrape.Plan()
		assert.Equal(t, 5*time.Second, plan.RateLimitDelay)
		assert.Equal(t, 10, plan.BatchSize)
		assert.Equal(t, 100, plan.DailyLimit)
		assert.NoError(t, plan.Validate())
	})

	// Test runtime overrides
	t.Run("RuntimeOverrides", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify overrides were applied
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Verify non-overridden values remain default
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	// Test environment variable overrides
	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("GRAMSIFT_PORT", "3000")
		t.Setenv("GRAMSIFT_LOG_LEVEL", "warn")
		t.Setenv("GRAMSIFT_METRICS_ENABLED", "false")
		t.Setenv("GRAMSIFT_GATEWAY_URL", "http://gateway:9100")
		t.Setenv("GRAMSIFT_SCRAPE_DAILY_LIMIT", "250")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify env overrides were applied
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, "http://gateway:9100", cfg.Gateway.URL)
		assert.Equal(t, 250, cfg.Scrape.DailyLimit)
	})

	// Test config precedence: runtime > env > defaults
	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("GRAMSIFT_PORT", "4000")

		// Runtime override should win
		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Runtime override should take precedence over env var
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	// Test user config file layering
	t.Run("UserConfigFile", func(t *testing.T) {
		configHome := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", configHome)

		appDir := filepath.Join(configHome, "gramsift")
		require.NoError(t, os.MkdirAll(appDir, 0o755))
		yamlBody := []byte("scrape:\n  sources:\n    - CryptoNews\n    - TechTalk\n  batch_delay: 20s\nembed:\n  model: mxbai-embed-large\n")
		require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), yamlBody, 0o644))

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"CryptoNews", "TechTalk"}, cfg.Scrape.Sources)
		assert.Equal(t, 20*time.Second, cfg.Scrape.BatchDelay)
		assert.Equal(t, "mxbai-embed-large", cfg.Embed.Model)
		// Values not present in the file keep their defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
	})
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	// Load config first
	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Test GetConfig returns the same instance
	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})
}

func TestEnvSpecs(t *testing.T) {
	// Need to set app identity for env specs
	ctx := context.Background()
	_, err := Load(ctx)
	require.NoError(t, err)

	specs := getEnvSpecs()
	assert.NotEmpty(t, specs)

	// Verify critical env var mappings exist
	envVarNames := make(map[string]bool)
	for _, spec := range specs {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["GRAMSIFT_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["GRAMSIFT_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["GRAMSIFT_HOST"], "HOST env var must be mapped")
	assert.True(t, envVarNames["GRAMSIFT_METRICS_PORT"], "METRICS_PORT env var must be mapped")
	assert.True(t, envVarNames["GRAMSIFT_DB_PATH"], "DB_PATH env var must be mapped")
	assert.True(t, envVarNames["GRAMSIFT_GATEWAY_URL"], "GATEWAY_URL env var must be mapped")
	assert.True(t, envVarNames["GRAMSIFT_SCRAPE_COOLDOWN_PERIOD"], "SCRAPE_COOLDOWN_PERIOD env var must be mapped")
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GRAMSIFT_READ_TIMEOUT", "45s")
	t.Setenv("GRAMSIFT_SCRAPE_SOURCE_DELAY", "2m")

	cfg, err := Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Scrape.SourceDelay)
}
