package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gramsift/gramsift/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over stored messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("search query is required")
		}

		limit, err := cmd.Flags().GetInt("limit")
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

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		results, err := db.Search(cmd.Context(), query, limit)
		if err != nil {
			return err
		}

		rows := make([]output.SearchRow, 0, len(results))
		for _, r := range results {
			rows = append(rows, output.SearchRow{
				Source:    r.Message.Source,
				MessageID: r.Message.ID,
				Date:      r.Message.Date,
				Text:      r.Message.Text,
				Score:     r.Rank,
			})
		}

		formatter := output.NewFormatter(format)
		rendered, err := formatter.FormatSearch(rows)
		if err != nil {
			return err
		}
		if rendered != "" {
			fmt.Println(rendered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("limit", 20, "Maximum number of results")
	searchCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}
