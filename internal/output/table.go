package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gramsift/gramsift/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatReport renders a session report as a table with a quota footer.
func (f *TableFormatter) FormatReport(report *core.SessionReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	style := table.StyleRounded
	// Keep stop reasons readable in the summary line
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Source", "Kept", "Batches", "Cursor", "Stopped"})

	for _, r := range report.Sources {
		t.AppendRow(table.Row{
			string(r.Source),
			r.MessagesKept,
			r.Batches,
			r.Cursor,
			stopLabel(r),
		})
	}

	summary := fmt.Sprintf("%d messages", report.TotalKept)
	if report.StoppedBy != "" {
		summary += fmt.Sprintf(" (stopped: %s)", report.StoppedBy)
	}
	t.AppendFooter(table.Row{"", summary, "", "", ""})

	rendered := t.Render()
	rendered += fmt.Sprintf("\nQuota: %d/%d today, %d/%d this hour, %d/%d sources\n",
		report.Counters.MessagesToday, report.PlanApplied.DailyLimit,
		report.Counters.MessagesThisHour, report.PlanApplied.HourlyLimit,
		len(report.Counters.SourcesToday), report.PlanApplied.MaxSourcesPerDay)
	return rendered, nil
}

// FormatSearch renders search hits as a table.
func (f *TableFormatter) FormatSearch(rows []SearchRow) (string, error) {
	if len(rows) == 0 {
		return "No matches found.", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Source", "ID", "Date", "Score", "Text"})

	for _, row := range rows {
		t.AppendRow(table.Row{
			string(row.Source),
			row.MessageID,
			row.Date.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.3f", row.Score),
			truncateText(row.Text, 60),
		})
	}

	return t.Render(), nil
}

// FormatStats renders store totals and quota usage.
func (f *TableFormatter) FormatStats(stats *StatsView) (string, error) {
	if stats == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Messages stored", stats.TotalMessages})
	t.AppendRow(table.Row{"Sources seen", stats.DistinctSources})
	t.AppendRow(table.Row{"Awaiting embedding", stats.Unindexed})
	t.AppendRow(table.Row{"Messages today", fmt.Sprintf("%d/%d", stats.Usage.MessagesToday, stats.Plan.DailyLimit)})
	t.AppendRow(table.Row{"Messages this hour", fmt.Sprintf("%d/%d", stats.Usage.MessagesThisHour, stats.Plan.HourlyLimit)})
	t.AppendRow(table.Row{"Sources today", fmt.Sprintf("%d/%d", len(stats.Usage.SourcesToday), stats.Plan.MaxSourcesPerDay)})
	rendered := t.Render()

	if len(stats.TopSources) > 0 {
		top := table.NewWriter()
		top.SetStyle(table.StyleRounded)
		top.AppendHeader(table.Row{"Source", "Messages"})
		for _, s := range stats.TopSources {
			top.AppendRow(table.Row{string(s.Source), s.Count})
		}
		rendered += "\n" + top.Render()
	}

	return rendered, nil
}
