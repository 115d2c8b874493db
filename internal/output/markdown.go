package output

import (
	"fmt"
	"strings"

	"github.com/gramsift/gramsift/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatReport renders a session report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.SessionReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Session report\n\n")
	sb.WriteString("| Source | Kept | Batches | Cursor | Stopped |\n")
	sb.WriteString("|--------|------|---------|--------|--------|\n")

	for _, r := range report.Sources {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s |\n",
			escapeMarkdownCell(string(r.Source)),
			r.MessagesKept,
			r.Batches,
			r.Cursor,
			escapeMarkdownCell(stopLabel(r)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Total**: %d messages", report.TotalKept))
	if report.StoppedBy != "" {
		sb.WriteString(fmt.Sprintf(" (stopped: %s)", report.StoppedBy))
	}
	sb.WriteString(fmt.Sprintf("\n\n**Quota**: %d/%d today, %d/%d this hour, %d/%d sources\n",
		report.Counters.MessagesToday, report.PlanApplied.DailyLimit,
		report.Counters.MessagesThisHour, report.PlanApplied.HourlyLimit,
		len(report.Counters.SourcesToday), report.PlanApplied.MaxSourcesPerDay))
	return sb.String(), nil
}

// FormatSearch renders search hits as Markdown.
func (f *MarkdownFormatter) FormatSearch(rows []SearchRow) (string, error) {
	if len(rows) == 0 {
		return "No matches found.", nil
	}

	var sb strings.Builder
	sb.WriteString("| Source | ID | Date | Score | Text |\n")
	sb.WriteString("|--------|----|------|-------|------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %.3f | %s |\n",
			escapeMarkdownCell(string(row.Source)),
			row.MessageID,
			row.Date.Format("2006-01-02 15:04"),
			row.Score,
			escapeMarkdownCell(truncateText(row.Text, 60)),
		))
	}
	return sb.String(), nil
}

// FormatStats renders stats as Markdown.
func (f *MarkdownFormatter) FormatStats(stats *StatsView) (string, error) {
	if stats == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Store stats\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Messages stored | %d |\n", stats.TotalMessages))
	sb.WriteString(fmt.Sprintf("| Sources seen | %d |\n", stats.DistinctSources))
	sb.WriteString(fmt.Sprintf("| Awaiting embedding | %d |\n", stats.Unindexed))
	sb.WriteString(fmt.Sprintf("| Messages today | %d/%d |\n", stats.Usage.MessagesToday, stats.Plan.DailyLimit))
	sb.WriteString(fmt.Sprintf("| Messages this hour | %d/%d |\n", stats.Usage.MessagesThisHour, stats.Plan.HourlyLimit))
	sb.WriteString(fmt.Sprintf("| Sources today | %d/%d |\n", len(stats.Usage.SourcesToday), stats.Plan.MaxSourcesPerDay))

	if len(stats.TopSources) > 0 {
		sb.WriteString("\n### Top sources\n\n")
		sb.WriteString("| Source | Messages |\n")
		sb.WriteString("|--------|----------|\n")
		for _, s := range stats.TopSources {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", escapeMarkdownCell(string(s.Source)), s.Count))
		}
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
