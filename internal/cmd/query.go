package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/core/clean"
	"github.com/gramsift/gramsift/internal/embed"
	"github.com/gramsift/gramsift/internal/index"
	"github.com/gramsift/gramsift/internal/metrics"
	"github.com/gramsift/gramsift/internal/output"
)

var queryTopK int

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Semantic search over the vector index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (runErr error) {
		defer func() { metrics.RecordOperation("query", runErr == nil) }()

		formatValue, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		format, err := output.ParseFormat(formatValue)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		cfg := config.GetConfig()
		if cfg == nil {
			loaded, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
		}

		engine, err := embed.New(embed.Options{
			Provider:   cfg.Embed.Provider,
			BaseURL:    cfg.Embed.BaseURL,
			Model:      cfg.Embed.Model,
			APIKey:     cfg.Embed.APIKey,
			Dimensions: cfg.Embed.Dimensions,
		})
		if err != nil {
			return err
		}

		text := clean.New().ForEmbedding(strings.Join(args, " "))
		if text == "" {
			return fmt.Errorf("query text is empty after normalization")
		}

		vector, err := engine.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}

		idx, err := index.Connect(cfg.Index.Addr, cfg.Index.Collection)
		if err != nil {
			return err
		}
		defer idx.Close() // nolint:errcheck // best-effort cleanup

		hits, err := idx.Query(ctx, vector, queryTopK)
		if err != nil {
			return err
		}

		rows := make([]output.SearchRow, 0, len(hits))
		for _, hit := range hits {
			rows = append(rows, output.SearchRow{
				Source:    hit.Source,
				MessageID: hit.MessageID,
				Text:      hit.Text,
				Score:     float64(hit.Score),
			})
		}

		formatter := output.NewFormatter(format)
		rendered, err := formatter.FormatSearch(rows)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntVar(&queryTopK, "top-k", 10, "Number of results to return")
	queryCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}
