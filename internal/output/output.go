package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// SearchRow is one rendered search hit, from either the text index or the
// vector index.
type SearchRow struct {
	Source    core.SourceID `json:"source"`
	MessageID int64         `json:"message_id"`
	Date      time.Time     `json:"date"`
	Text      string        `json:"text"`
	Score     float64       `json:"score"`
}

// SourceCount is one row of the per-source message tally.
type SourceCount struct {
	Source core.SourceID `json:"source"`
	Count  int           `json:"count"`
}

// StatsView aggregates store counts with current quota usage for display.
type StatsView struct {
	TotalMessages   int                   `json:"total_messages"`
	DistinctSources int                   `json:"distinct_sources"`
	Unindexed       int                   `json:"unindexed"`
	TopSources      []SourceCount         `json:"top_sources"`
	Usage           core.CountersSnapshot `json:"usage"`
	Plan            core.SessionPlan      `json:"plan"`
}

// Formatter renders session reports, search hits, and stats.
type Formatter interface {
	FormatReport(report *core.SessionReport) (string, error)
	FormatSearch(rows []SearchRow) (string, error)
	FormatStats(stats *StatsView) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// truncateText shortens message bodies so table rows stay scannable.
func truncateText(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || len(text) <= limit {
		return text
	}
	if limit <= 3 {
		return text[:limit]
	}
	return text[:limit-3] + "..."
}

func stopLabel(r core.SourceResult) string {
	label := string(r.StopReason)
	if r.ErrMessage != "" {
		label += ": " + truncateText(r.ErrMessage, 40)
	}
	return label
}
