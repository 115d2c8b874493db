package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeywordFilterCaseInsensitive(t *testing.T) {
	filter := NewKeywordFilter([]string{"bitcoin"})

	batch := []Message{
		{ID: 1, Text: "Bitcoin hits a new high"},
		{ID: 2, Text: "weather today is fine"},
		{ID: 3, Text: "thinking about BITCOIN again"},
		{ID: 4, Text: "lunch plans anyone"},
		{ID: 5, Text: "stocks are down"},
	}

	kept := filter.Apply(batch)
	require.Len(t, kept, 2)
	require.Equal(t, int64(1), kept[0].ID)
	require.Equal(t, int64(3), kept[1].ID)
	for _, msg := range kept {
		require.Equal(t, []string{"bitcoin"}, msg.KeywordsMatched)
	}
}

func TestKeywordFilterMultipleMatches(t *testing.T) {
	filter := NewKeywordFilter([]string{"bitcoin", "wallet"})

	kept := filter.Apply([]Message{
		{ID: 1, Text: "moved my Bitcoin to a new wallet"},
	})
	require.Len(t, kept, 1)
	require.Equal(t, []string{"bitcoin", "wallet"}, kept[0].KeywordsMatched)
}

func TestKeywordFilterEmptyPassesThrough(t *testing.T) {
	batch := []Message{
		{ID: 1, Text: "anything"},
		{ID: 2, Text: "goes"},
	}

	require.Equal(t, batch, NewKeywordFilter(nil).Apply(batch))
	require.Equal(t, batch, NewKeywordFilter([]string{"  ", ""}).Apply(batch))

	var nilFilter *KeywordFilter
	require.True(t, nilFilter.Empty())
	require.Equal(t, batch, nilFilter.Apply(batch))
}

func TestKeywordFilterStripsNoiseBeforeMatching(t *testing.T) {
	filter := NewKeywordFilter([]string{"bitcoin"})

	// A keyword buried in a URL or email address is not a real mention.
	kept := filter.Apply([]Message{
		{ID: 1, Text: "read more at https://bitcoin-signals.example/daily"},
		{ID: 2, Text: "contact bitcoin@spam.example for offers"},
	})
	require.Empty(t, kept)

	// Emoji around the keyword does not block the match.
	kept = filter.Apply([]Message{
		{ID: 3, Text: "🚀🚀 Bitcoin 🚀🚀 is moving"},
	})
	require.Len(t, kept, 1)
	require.Equal(t, []string{"bitcoin"}, kept[0].KeywordsMatched)
}

func TestKeywordFilterNormalizesInput(t *testing.T) {
	filter := NewKeywordFilter([]string{" Bitcoin ", "ETH"})
	require.Equal(t, []string{"bitcoin", "eth"}, filter.Keywords())
}

func TestSessionPlanValidate(t *testing.T) {
	require.NoError(t, StandardPlan().Validate())
	require.NoError(t, ConservativePlan().Validate())

	bad := StandardPlan()
	bad.BatchSize = 0
	require.Error(t, bad.Validate())

	bad = StandardPlan()
	bad.DailyLimit = -1
	require.Error(t, bad.Validate())

	zeroCooldown := StandardPlan()
	zeroCooldown.CooldownPeriod = 0
	require.NoError(t, zeroCooldown.Validate())
}

func TestSessionPlanWarnings(t *testing.T) {
	plan := StandardPlan()
	plan.BatchSize = 50
	plan.MaxBatchesPerSource = 3
	plan.DailyLimit = 100

	warnings := plan.Warnings()
	require.NotEmpty(t, warnings)
	require.Contains(t, warnings[0], "daily_limit")

	require.Empty(t, StandardPlan().Warnings())
}

func TestSessionPlanMaxBatches(t *testing.T) {
	plan := StandardPlan()
	require.Equal(t, plan.MaxBatchesPerSource, plan.MaxBatches(false))
	require.Equal(t, plan.MaxBatchesBulk, plan.MaxBatches(true))
}

func TestFetchOutcomeConstructors(t *testing.T) {
	msgs := []Message{{ID: 1, Text: "hi", Date: time.Now()}}
	require.Equal(t, OutcomeSuccess, Success(msgs).Kind)
	require.Equal(t, OutcomeRateLimited, RateLimitedOutcome(30*time.Second).Kind)
	require.Equal(t, OutcomeTransientFailure, TransientOutcome(nil).Kind)
	require.Equal(t, OutcomeExhausted, ExhaustedOutcome().Kind)
}
