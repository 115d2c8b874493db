package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display comprehensive environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()

		observability.CLILogger.Info("=== GramSift Environment Information ===")
		observability.CLILogger.Info("")

		// Application Info
		identity := GetAppIdentity()
		observability.CLILogger.Info("Application:")
		observability.CLILogger.Info("  Name:       " + identity.BinaryName)
		observability.CLILogger.Info("  Version:    " + versionInfo.Version)
		observability.CLILogger.Info("  Commit:     " + versionInfo.Commit)
		observability.CLILogger.Info("  Built:      " + versionInfo.BuildDate)
		observability.CLILogger.Info("")

		// SSOT Info
		observability.CLILogger.Info("SSOT:")
		observability.CLILogger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		observability.CLILogger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		observability.CLILogger.Info("")

		// Runtime Info
		observability.CLILogger.Info("Runtime:")
		observability.CLILogger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		observability.CLILogger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		observability.CLILogger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		observability.CLILogger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		observability.CLILogger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return
		}

		// Configuration
		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		observability.CLILogger.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		observability.CLILogger.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		observability.CLILogger.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		observability.CLILogger.Info("  DB Driver:      "+cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			observability.CLILogger.Info("  DB URL:         "+cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			observability.CLILogger.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		observability.CLILogger.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		observability.CLILogger.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		observability.CLILogger.Info("")

		// Gateway Configuration
		observability.CLILogger.Info("Gateway:")
		observability.CLILogger.Info("  URL:            "+cfg.Gateway.URL, zap.String("gateway_url", cfg.Gateway.URL))
		observability.CLILogger.Info("  Timeout:        " + cfg.Gateway.Timeout.String())
		if strings.TrimSpace(cfg.Gateway.Token) != "" {
			observability.CLILogger.Info("  Token:          (set)")
		} else {
			observability.CLILogger.Info("  Token:          (not set)")
		}
		observability.CLILogger.Info("")

		// Scrape Plan Configuration
		plan := cfg.Scrape.Plan()
		observability.CLILogger.Info("Scrape Plan:")
		observability.CLILogger.Info(fmt.Sprintf("  Sources:        %d configured", len(cfg.Scrape.Sources)))
		observability.CLILogger.Info("  Batch Delay:    " + plan.BatchDelay.String())
		observability.CLILogger.Info(fmt.Sprintf("  Batch Size:     %d", plan.BatchSize))
		observability.CLILogger.Info(fmt.Sprintf("  Hourly Limit:   %d", plan.HourlyLimit))
		observability.CLILogger.Info(fmt.Sprintf("  Daily Limit:    %d", plan.DailyLimit))
		observability.CLILogger.Info(fmt.Sprintf("  Sources/Day:    %d", plan.MaxSourcesPerDay))
		observability.CLILogger.Info("  Cooldown:       " + plan.CooldownPeriod.String())
		observability.CLILogger.Info("")

		// Embedding Provider Configuration
		observability.CLILogger.Info("Embedding:")
		observability.CLILogger.Info("  Provider:       " + cfg.Embed.Provider)
		observability.CLILogger.Info("  Base URL:       " + cfg.Embed.BaseURL)
		observability.CLILogger.Info("  Model:          " + cfg.Embed.Model)
		observability.CLILogger.Info(fmt.Sprintf("  Dimensions:     %d", cfg.Embed.Dimensions))
		if strings.TrimSpace(cfg.Embed.APIKey) != "" {
			observability.CLILogger.Info("  API Key:        (set)")
		} else {
			observability.CLILogger.Info("  API Key:        (not set)")
		}
		observability.CLILogger.Info("")

		// Vector Index Configuration
		observability.CLILogger.Info("Index:")
		observability.CLILogger.Info("  Address:        " + cfg.Index.Addr)
		observability.CLILogger.Info("  Collection:     " + cfg.Index.Collection)
		observability.CLILogger.Info("")

		observability.CLILogger.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
