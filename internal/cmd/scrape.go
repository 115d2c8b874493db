package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/core"
	"github.com/gramsift/gramsift/internal/core/engine"
	"github.com/gramsift/gramsift/internal/core/source"
	"github.com/gramsift/gramsift/internal/core/store"
	"github.com/gramsift/gramsift/internal/metrics"
	"github.com/gramsift/gramsift/internal/observability"
	"github.com/gramsift/gramsift/internal/output"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [source]...",
	Short: "Run a paced scraping session",
	Long: `Fetch new messages from the given sources through the scraper
gateway, honoring pacing delays and hourly/daily quotas. Cursors are
persisted per source, so interrupted sessions resume where they left off.`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringSlice("keywords", nil, "Keep only messages matching these keywords")
	scrapeCmd.Flags().Bool("all", false, "Scrape the configured source list with the bulk batch cap")
	scrapeCmd.Flags().Bool("conservative", false, "Use the conservative pacing plan")
	scrapeCmd.Flags().String("profile", "", "Use a stored source profile")
	scrapeCmd.Flags().String("sources-file", "", "Read sources from a file (one per line, - for stdin)")
	scrapeCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	keywordsFlag, err := cmd.Flags().GetStringSlice("keywords")
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	conservative, err := cmd.Flags().GetBool("conservative")
	if err != nil {
		return err
	}
	profileName, err := cmd.Flags().GetString("profile")
	if err != nil {
		return err
	}
	sourcesFile, err := cmd.Flags().GetString("sources-file")
	if err != nil {
		return err
	}
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	sources, keywords, err := resolveScrapeInputs(cmd, db, args, sourcesFile, profileName, all, &conservative, keywordsFlag, cfg)
	if err != nil {
		return err
	}

	plan := cfg.Scrape.Plan()
	if conservative {
		plan = core.ConservativePlan()
	}
	for _, warning := range plan.Warnings() {
		observability.CLILogger.Warn(warning)
	}

	counters, err := loadCounters(ctx, db)
	if err != nil {
		return err
	}

	client := &source.GatewayClient{
		Client:  &http.Client{Timeout: cfg.Gateway.Timeout},
		BaseURL: cfg.Gateway.URL,
		Token:   cfg.Gateway.Token,
	}

	session := &engine.Session{
		Client:     client,
		Store:      db,
		Counters:   counters,
		Filter:     core.NewKeywordFilter(keywords),
		Bulk:       all,
		BaseDelay:  cfg.Scrape.BaseDelay,
		RetryFloor: cfg.Scrape.RetryFloor,
		Progress:   logProgress,
	}

	startedAt := time.Now()
	report, runErr := session.Run(ctx, sources, plan)
	metrics.RecordOperation("scrape", runErr == nil)
	if runErr != nil {
		metrics.RecordOperationError("scrape", scrapeErrorType(runErr))
	}

	// Persist whatever we have even when the run was cut short.
	if report != nil {
		if err := db.SaveUsage(ctx, report.Counters); err != nil {
			observability.CLILogger.Warn("Failed to persist usage counters", zap.Error(err))
		}
		recordSessionMetrics(report, startedAt)
	}

	if runErr != nil && report == nil {
		return runErr
	}

	formatter := output.NewFormatter(format)
	rendered, err := formatter.FormatReport(report)
	if err != nil {
		return err
	}
	if rendered != "" {
		fmt.Println(rendered)
	}

	return runErr
}

// resolveScrapeInputs merges positional sources, --sources-file, --all,
// and --profile into the final source and keyword lists.
func resolveScrapeInputs(cmd *cobra.Command, db *store.Store, args []string, sourcesFile, profileName string, all bool, conservative *bool, keywords []string, cfg *config.Config) ([]core.SourceID, []string, error) {
	if trimmed := strings.TrimSpace(profileName); trimmed != "" {
		record, err := loadProfileRecord(cmd.Context(), db, trimmed)
		if err != nil {
			return nil, nil, err
		}
		profile := record.Profile
		if len(profile.Sources) == 0 {
			return nil, nil, fmt.Errorf("profile %q has no sources", profile.Name)
		}
		if profile.Conservative {
			*conservative = true
		}
		merged := keywords
		if len(merged) == 0 {
			merged = profile.Keywords
		}
		return profile.Sources, merged, nil
	}

	if all {
		if len(args) > 0 || strings.TrimSpace(sourcesFile) != "" {
			return nil, nil, errors.New("--all cannot be combined with explicit sources")
		}
		if len(cfg.Scrape.Sources) == 0 {
			return nil, nil, errors.New("--all requires scrape.sources in config")
		}
		sources := make([]core.SourceID, 0, len(cfg.Scrape.Sources))
		for _, name := range cfg.Scrape.Sources {
			name = strings.TrimPrefix(strings.TrimSpace(name), "@")
			if name == "" {
				continue
			}
			if err := validateSource(name); err != nil {
				return nil, nil, err
			}
			sources = append(sources, core.SourceID(name))
		}
		if len(sources) == 0 {
			return nil, nil, errors.New("scrape.sources contained no valid sources")
		}
		merged := keywords
		if len(merged) == 0 {
			merged = cfg.Scrape.Keywords
		}
		return sources, merged, nil
	}

	sources, err := resolveSources(args, sourcesFile)
	if err != nil {
		return nil, nil, err
	}
	merged := keywords
	if len(merged) == 0 {
		merged = cfg.Scrape.Keywords
	}
	return sources, merged, nil
}

func logProgress(update engine.ProgressUpdate) {
	observability.CLILogger.Info("Progress",
		zap.Int("messages_this_hour", update.MessagesThisHour),
		zap.Int("hourly_limit", update.HourlyLimit),
		zap.Int("messages_today", update.MessagesToday),
		zap.Int("daily_limit", update.DailyLimit),
		zap.Int("sources_today", update.SourcesToday),
		zap.Int("max_sources_per_day", update.MaxSourcesPerDay),
	)
}

func scrapeErrorType(err error) string {
	switch {
	case core.IsQuotaExceeded(err):
		return "quota"
	case core.IsCooldownActive(err):
		return "cooldown"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "session"
	}
}

func recordSessionMetrics(report *core.SessionReport, startedAt time.Time) {
	for _, result := range report.Sources {
		metrics.RecordMessagesScraped(string(result.Source), result.MessagesKept)
		metrics.RecordBatchFetched(string(result.Source), string(result.StopReason))
		switch result.StopReason {
		case core.StopRateLimited:
			metrics.RecordRateLimitHit(string(result.Source))
			metrics.RecordSourceAbandoned(string(result.Source), "rate_limited")
		case core.StopTransient:
			metrics.RecordSourceAbandoned(string(result.Source), "transient")
		}
	}
	metrics.RecordSessionDuration(time.Since(startedAt), report.StoppedBy)
}
