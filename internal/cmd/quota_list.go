package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/core"
	"github.com/gramsift/gramsift/internal/output"
)

var (
	quotaListOutput string
	quotaListOut    string
	quotaListOutDir string
)

var quotaListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored quota usage against plan limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(quotaListOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		counters, err := loadCounters(cmd.Context(), db)
		if err != nil {
			return err
		}
		snap := counters.Snapshot()

		cfg := config.GetConfig()
		plan := core.StandardPlan()
		if cfg != nil {
			plan = cfg.Scrape.Plan()
		}

		outPath := strings.TrimSpace(quotaListOut)
		outDir := strings.TrimSpace(quotaListOutDir)
		if outPath != "" && outDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}

		ext := outputExtension(format)
		if outDir != "" {
			var err error
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("quota.list.%s", ext))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(map[string]any{
				"usage": snap,
				"limits": map[string]any{
					"hourly_limit":        plan.HourlyLimit,
					"daily_limit":         plan.DailyLimit,
					"max_sources_per_day": plan.MaxSourcesPerDay,
				},
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(sink.writer, string(payload))
			return err
		}

		lastSession := "-"
		if !snap.LastSessionEndedAt.IsZero() {
			lastSession = snap.LastSessionEndedAt.UTC().Format(time.RFC3339)
		}

		lines := []string{
			"Quota Usage",
			"",
			fmt.Sprintf("messages this hour: %d/%d", snap.MessagesThisHour, plan.HourlyLimit),
			fmt.Sprintf("messages today:     %d/%d", snap.MessagesToday, plan.DailyLimit),
			fmt.Sprintf("sources today:      %d/%d", len(snap.SourcesToday), plan.MaxSourcesPerDay),
			fmt.Sprintf("last session ended: %s", lastSession),
		}
		if len(snap.SourcesToday) > 0 {
			names := make([]string, 0, len(snap.SourcesToday))
			for _, id := range snap.SourcesToday {
				names = append(names, string(id))
			}
			lines = append(lines, "", "Sources:")
			for _, name := range names {
				lines = append(lines, "  "+name)
			}
		}

		_, _ = fmt.Fprint(sink.writer, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}

func init() {
	quotaListCmd.Flags().StringVar(&quotaListOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	quotaListCmd.Flags().StringVar(&quotaListOut, "out", "", "Write output to a file (default stdout)")
	quotaListCmd.Flags().StringVar(&quotaListOutDir, "out-dir", "", "Write output to a directory")
}
