package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/core/clean"
	"github.com/gramsift/gramsift/internal/embed"
	"github.com/gramsift/gramsift/internal/index"
	"github.com/gramsift/gramsift/internal/metrics"
	"github.com/gramsift/gramsift/internal/observability"
)

var embedBatch int

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed unindexed messages and push them to the vector index",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { metrics.RecordOperation("embed", err == nil) }()

		ctx := cmd.Context()

		cfg := config.GetConfig()
		if cfg == nil {
			loaded, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
		}

		batch := embedBatch
		if batch <= 0 {
			batch = cfg.Embed.Batch
		}
		if batch <= 0 {
			batch = 32
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

		idx, err := index.Connect(cfg.Index.Addr, cfg.Index.Collection)
		if err != nil {
			return err
		}
		defer idx.Close() // nolint:errcheck // best-effort cleanup

		if err := idx.EnsureCollection(ctx, engine.Dimensions()); err != nil {
			return err
		}

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		cleaner := clean.New()
		total := 0
		for {
			pending, err := db.UnindexedMessages(ctx, batch)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				break
			}

			points := make([]index.Point, 0, len(pending))
			rowIDs := make([]int64, 0, len(pending))
			for _, item := range pending {
				text := cleaner.ForEmbedding(item.Message.Text)
				if text == "" {
					rowIDs = append(rowIDs, item.RowID)
					continue
				}
				vector, err := engine.Embed(ctx, text)
				if err != nil {
					return fmt.Errorf("embedding message %d from %s: %w", item.Message.ID, item.Message.Source, err)
				}
				points = append(points, index.Point{
					Source:    item.Message.Source,
					MessageID: item.Message.ID,
					Text:      item.Message.Text,
					Keywords:  item.Message.KeywordsMatched,
					Vector:    vector,
				})
				rowIDs = append(rowIDs, item.RowID)
			}

			if len(points) > 0 {
				if err := idx.Upsert(ctx, points); err != nil {
					return err
				}
				metrics.RecordPointsIndexed(idx.Collection(), len(points))
			}
			if err := db.MarkIndexed(ctx, rowIDs, time.Now().UTC()); err != nil {
				return err
			}

			metrics.RecordMessagesEmbedded(cfg.Embed.Provider, len(points))
			total += len(points)
			observability.CLILogger.Info("Embedded batch",
				zap.Int("messages", len(points)),
				zap.Int("total", total))
		}

		fmt.Printf("Indexed %d messages into %s\n", total, idx.Collection())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().IntVar(&embedBatch, "batch", 0, "Messages per embedding batch (default from config)")
}
