package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramsift/gramsift/internal/core"
)

func sampleReport() *core.SessionReport {
	return &core.SessionReport{
		Sources: []core.SourceResult{
			{Source: "CryptoNews", MessagesKept: 12, Batches: 2, Cursor: 310, StopReason: core.StopBatchCap},
			{Source: "TechTalk", MessagesKept: 3, Batches: 1, Cursor: 88, StopReason: core.StopRateLimited, ErrMessage: "gave up after 3 attempts"},
		},
		TotalKept: 15,
		Counters: core.CountersSnapshot{
			MessagesToday:    15,
			MessagesThisHour: 15,
			SourcesToday:     []core.SourceID{"CryptoNews", "TechTalk"},
		},
		PlanApplied: core.StandardPlan(),
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"TABLE", FormatTable, false},
		{" json ", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"yaml", "", true},
	}

	for _, tc := range cases {
		format, err := ParseFormat(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.expected, format)
	}
}

func TestTableFormatterReport(t *testing.T) {
	formatter := &TableFormatter{}

	rendered, err := formatter.FormatReport(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, rendered, "CryptoNews")
	assert.Contains(t, rendered, "TechTalk")
	assert.Contains(t, rendered, "rate_limited: gave up after 3 attempts")
	assert.Contains(t, rendered, "15 messages")
	assert.NotContains(t, rendered, "15 MESSAGES")
	assert.Contains(t, rendered, "15/100 today")
	assert.Contains(t, rendered, "2/10 sources")
}

func TestTableFormatterSearch(t *testing.T) {
	formatter := &TableFormatter{}

	rendered, err := formatter.FormatSearch([]SearchRow{
		{
			Source:    "CryptoNews",
			MessageID: 42,
			Date:      time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
			Text:      "Bitcoin hits a new high",
			Score:     0.91,
		},
	})
	require.NoError(t, err)

	assert.Contains(t, rendered, "CryptoNews")
	assert.Contains(t, rendered, "2025-06-01 09:30")
	assert.Contains(t, rendered, "Bitcoin hits a new high")
}

func TestTableFormatterSearchEmpty(t *testing.T) {
	formatter := &TableFormatter{}

	rendered, err := formatter.FormatSearch(nil)
	require.NoError(t, err)
	assert.Equal(t, "No matches found.", rendered)
}

func TestJSONFormatterReportRoundTrips(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}

	rendered, err := formatter.FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded core.SessionReport
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, 15, decoded.TotalKept)
	assert.Len(t, decoded.Sources, 2)
	assert.Equal(t, core.StopRateLimited, decoded.Sources[1].StopReason)
}

func TestMarkdownFormatterStats(t *testing.T) {
	formatter := &MarkdownFormatter{}

	rendered, err := formatter.FormatStats(&StatsView{
		TotalMessages:   120,
		DistinctSources: 4,
		Unindexed:       7,
		TopSources:      []SourceCount{{Source: "CryptoNews", Count: 80}},
		Usage:           core.CountersSnapshot{MessagesToday: 20},
		Plan:            core.StandardPlan(),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, "## Store stats"))
	assert.Contains(t, rendered, "| Messages stored | 120 |")
	assert.Contains(t, rendered, "| Awaiting embedding | 7 |")
	assert.Contains(t, rendered, "| CryptoNews | 80 |")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 60))
	assert.Equal(t, "one two", truncateText("one\n  two", 60))
	long := strings.Repeat("a", 80)
	truncated := truncateText(long, 60)
	assert.Len(t, truncated, 60)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}
