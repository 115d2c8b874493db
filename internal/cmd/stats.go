package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/core"
	"github.com/gramsift/gramsift/internal/core/store"
	"github.com/gramsift/gramsift/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store totals and quota usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatValue, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		format, err := output.ParseFormat(formatValue)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		stats, err := db.GetStats(ctx)
		if err != nil {
			return err
		}

		counters, err := loadCounters(ctx, db)
		if err != nil {
			return err
		}

		cfg := config.GetConfig()
		plan := core.StandardPlan()
		if cfg != nil {
			plan = cfg.Scrape.Plan()
		}

		view := buildStatsView(stats, counters.Snapshot(), plan)

		formatter := output.NewFormatter(format)
		rendered, err := formatter.FormatStats(view)
		if err != nil {
			return err
		}
		if rendered != "" {
			fmt.Println(rendered)
		}

		if format == output.FormatTable {
			fmt.Printf("Database: %s\n", getDBPath())
		}
		return nil
	},
}

// buildStatsView maps store aggregates and the usage snapshot into the
// renderable view.
func buildStatsView(stats *store.Stats, usage core.CountersSnapshot, plan core.SessionPlan) *output.StatsView {
	view := &output.StatsView{
		TotalMessages:   stats.TotalMessages,
		DistinctSources: stats.TotalSources,
		Unindexed:       stats.Unindexed,
		Usage:           usage,
		Plan:            plan,
	}
	for _, s := range stats.TopSources {
		view.TopSources = append(view.TopSources, output.SourceCount{
			Source: s.Source,
			Count:  s.MessageCount,
		})
	}
	return view
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}
