package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gramsift/gramsift/internal/core"
)

// scriptedClient replays a fixed sequence of outcomes per source.
type scriptedClient struct {
	outcomes map[core.SourceID][]core.FetchOutcome
	calls    []core.FetchRequest
}

func (c *scriptedClient) Fetch(ctx context.Context, req core.FetchRequest) (core.FetchOutcome, error) {
	c.calls = append(c.calls, req)
	queue := c.outcomes[req.Source]
	if len(queue) == 0 {
		return core.ExhaustedOutcome(), nil
	}
	next := queue[0]
	c.outcomes[req.Source] = queue[1:]
	return next, nil
}

// memorySink records saved messages and cursors.
type memorySink struct {
	messages []core.Message
	cursors  map[core.SourceID]int64
}

func (m *memorySink) SaveMessages(ctx context.Context, messages []core.Message) error {
	m.messages = append(m.messages, messages...)
	return nil
}

func (m *memorySink) Cursor(ctx context.Context, source core.SourceID) (int64, error) {
	if m.cursors == nil {
		return 0, nil
	}
	return m.cursors[source], nil
}

func (m *memorySink) SaveCursor(ctx context.Context, source core.SourceID, cursor int64) error {
	if m.cursors == nil {
		m.cursors = make(map[core.SourceID]int64)
	}
	m.cursors[source] = cursor
	return nil
}

func batchOf(source core.SourceID, startID int64, n int, text string) core.FetchOutcome {
	msgs := make([]core.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, core.Message{
			ID:     startID + int64(i),
			Source: source,
			Text:   fmt.Sprintf("%s %d", text, startID+int64(i)),
		})
	}
	return core.Success(msgs)
}

func testPlan() core.SessionPlan {
	return core.SessionPlan{
		RateLimitDelay:      5 * time.Second,
		BatchSize:           5,
		BatchDelay:          10 * time.Second,
		MaxRetries:          2,
		MaxBatchesPerSource: 3,
		MaxBatchesBulk:      2,
		SourceDelay:         15 * time.Second,
		DailyLimit:          100,
		HourlyLimit:         20,
		MaxSourcesPerDay:    10,
		CooldownPeriod:      0,
	}
}

// newTestSession wires a session with a fixed clock, zero jitter, and a
// sleep recorder that never actually waits.
func newTestSession(client Fetcher, sink Sink, sleeps *[]time.Duration) *Session {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Session{
		Client:   client,
		Store:    sink,
		Counters: core.NewUsageCounters(now),
		Clock:    func() time.Time { return now },
		Jitter:   func() float64 { return 0 },
		Sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return ctx.Err()
		},
	}
}

func TestSessionBatchAndDelayCounts(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			batchOf("alpha", 1, 5, "msg"),
			batchOf("alpha", 6, 5, "msg"),
			core.ExhaustedOutcome(),
		},
	}}
	sink := &memorySink{}
	var sleeps []time.Duration
	session := newTestSession(client, sink, &sleeps)

	plan := testPlan()
	plan.MaxBatchesPerSource = 2

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.NoError(t, err)
	require.Equal(t, 10, report.TotalKept)
	require.Len(t, report.Sources, 1)
	require.Equal(t, core.StopBatchCap, report.Sources[0].StopReason)
	require.Equal(t, 2, report.Sources[0].Batches)

	// Two pacing sleeps (one per fetch), one batch delay between the two
	// batches, none after the last batch, no source delay after the only
	// source.
	require.Equal(t, []time.Duration{
		5 * time.Second,
		10 * time.Second,
		5 * time.Second,
	}, sleeps)
	require.Equal(t, int64(10), sink.cursors["alpha"])
}

func TestSessionKeywordFilterQuota(t *testing.T) {
	messages := []core.Message{
		{ID: 1, Source: "alpha", Text: "Bitcoin is up today"},
		{ID: 2, Source: "alpha", Text: "nothing to see"},
		{ID: 3, Source: "alpha", Text: "sold all my BITCOIN"},
		{ID: 4, Source: "alpha", Text: "weather report"},
		{ID: 5, Source: "alpha", Text: "lunch thread"},
	}
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {core.Success(messages), core.ExhaustedOutcome()},
	}}
	sink := &memorySink{}
	var sleeps []time.Duration
	session := newTestSession(client, sink, &sleeps)
	session.Filter = core.NewKeywordFilter([]string{"bitcoin"})

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, testPlan())
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalKept)
	for _, msg := range report.Messages {
		require.Equal(t, []string{"bitcoin"}, msg.KeywordsMatched)
	}

	// Only kept messages count against quota.
	now := session.Clock()
	require.Equal(t, 2, session.Counters.MessagesToday(now))
	require.Equal(t, 2, session.Counters.MessagesThisHour(now))

	// Cursor advanced past the whole raw batch, filtered or not.
	require.Equal(t, int64(5), sink.cursors["alpha"])
}

func TestSessionRateLimitedRetryThenAbandon(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			core.RateLimitedOutcome(30 * time.Second),
			core.RateLimitedOutcome(30 * time.Second),
		},
		"beta": {batchOf("beta", 1, 3, "ok"), core.ExhaustedOutcome()},
	}}
	sink := &memorySink{}
	var sleeps []time.Duration
	session := newTestSession(client, sink, &sleeps)

	plan := testPlan()
	plan.MaxRetries = 1

	report, err := session.Run(context.Background(), []core.SourceID{"alpha", "beta"}, plan)
	require.NoError(t, err)

	require.Equal(t, core.StopRateLimited, report.Sources[0].StopReason)
	var abandoned *core.SourceAbandonedError
	require.ErrorAs(t, report.Sources[0].Err, &abandoned)
	require.True(t, abandoned.RateLimited)

	// The first rate limit waits the provider-specified 30s and retries
	// exactly once; the second abandons the source without a wait.
	require.Contains(t, sleeps, 30*time.Second)
	require.Equal(t, 1, countSleeps(sleeps, 30*time.Second))

	// The next source still ran.
	require.Equal(t, core.StopExhausted, report.Sources[1].StopReason)
	require.Equal(t, 3, report.Sources[1].MessagesKept)
}

func TestSessionAbandonedSourceKeepsDailySlot(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			core.RateLimitedOutcome(30 * time.Second),
			core.RateLimitedOutcome(30 * time.Second),
		},
		"beta": {batchOf("beta", 1, 3, "ok"), core.ExhaustedOutcome()},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	plan := testPlan()
	plan.MaxRetries = 1

	report, err := session.Run(context.Background(), []core.SourceID{"alpha", "beta"}, plan)
	require.NoError(t, err)
	require.Equal(t, core.StopRateLimited, report.Sources[0].StopReason)

	// Only the completed source spends a daily slot; alpha can be
	// retried in a later session without burning the quota.
	require.Equal(t, 1, session.Counters.SourceCount())
	require.False(t, session.Counters.HasSource("alpha"))
	require.True(t, session.Counters.HasSource("beta"))
	require.Equal(t, []core.SourceID{"beta"}, report.Counters.SourcesToday)
}

func TestSessionRateLimitFloor(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			core.RateLimitedOutcome(time.Second),
			batchOf("alpha", 1, 2, "ok"),
			core.ExhaustedOutcome(),
		},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)
	session.RetryFloor = 10 * time.Second

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, testPlan())
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalKept)
	require.Contains(t, sleeps, 10*time.Second)
	require.NotContains(t, sleeps, time.Second)
}

func TestSessionTransientBackoff(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			core.TransientOutcome(errors.New("connection reset")),
			core.TransientOutcome(errors.New("connection reset")),
			batchOf("alpha", 1, 4, "ok"),
			core.ExhaustedOutcome(),
		},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)
	session.BaseDelay = 2 * time.Second

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, testPlan())
	require.NoError(t, err)
	require.Equal(t, 4, report.TotalKept)

	// Exponential: 2s for attempt 0, 4s for attempt 1.
	require.Contains(t, sleeps, 2*time.Second)
	require.Contains(t, sleeps, 4*time.Second)
}

func TestSessionTransientAbandonAfterRetries(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			core.TransientOutcome(errors.New("boom")),
			core.TransientOutcome(errors.New("boom")),
			core.TransientOutcome(errors.New("boom")),
		},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	plan := testPlan()
	plan.MaxRetries = 2

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.NoError(t, err)
	require.Equal(t, core.StopTransient, report.Sources[0].StopReason)
	var abandoned *core.SourceAbandonedError
	require.ErrorAs(t, report.Sources[0].Err, &abandoned)
	require.EqualError(t, errors.Unwrap(abandoned), "boom")
}

func TestSessionDailySourceQuotaStopsSession(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	now := session.Clock()
	session.Counters.MarkSource("old1", now)
	session.Counters.MarkSource("old2", now)

	plan := testPlan()
	plan.MaxSourcesPerDay = 2

	var pushes []ProgressUpdate
	session.Progress = func(p ProgressUpdate) { pushes = append(pushes, p) }

	_, err := session.Run(context.Background(), []core.SourceID{"fresh"}, plan)
	require.Error(t, err)
	var quota *core.QuotaExceededError
	require.ErrorAs(t, err, &quota)
	require.Equal(t, core.QuotaSources, quota.Scope)
	require.Equal(t, core.SourceID("fresh"), quota.Source)

	// Session terminated before any fetch; the stop was still reported.
	require.Empty(t, client.calls)
	require.Len(t, pushes, 1)
}

func TestSessionHourlyQuotaTruncatesBatch(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {batchOf("alpha", 1, 10, "msg")},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	plan := testPlan()
	plan.BatchSize = 10
	plan.HourlyLimit = 7

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.NoError(t, err)
	require.Equal(t, 7, report.TotalKept)
	require.Equal(t, core.StopQuota, report.Sources[0].StopReason)
	require.Equal(t, 7, session.Counters.MessagesThisHour(session.Clock()))
}

func TestSessionQuotaNeverExceededAcrossSources(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {batchOf("alpha", 1, 5, "a"), core.ExhaustedOutcome()},
		"beta":  {batchOf("beta", 1, 5, "b"), core.ExhaustedOutcome()},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	plan := testPlan()
	plan.DailyLimit = 6
	plan.HourlyLimit = 6

	report, err := session.Run(context.Background(), []core.SourceID{"alpha", "beta", "gamma"}, plan)
	require.Error(t, err)
	require.True(t, core.IsQuotaExceeded(err))
	require.LessOrEqual(t, report.TotalKept, plan.DailyLimit)
	require.LessOrEqual(t, session.Counters.MessagesToday(session.Clock()), plan.DailyLimit)
}

func TestSessionCooldownGate(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	now := session.Clock()
	session.Counters.EndSession(now.Add(-10 * time.Minute))

	plan := testPlan()
	plan.CooldownPeriod = time.Hour

	_, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.Error(t, err)
	var cooldown *core.CooldownActiveError
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, 50*time.Minute, cooldown.Remaining)
	require.Empty(t, client.calls)
}

func TestSessionCooldownExpired(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {core.ExhaustedOutcome()},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	now := session.Clock()
	session.Counters.EndSession(now.Add(-2 * time.Hour))

	plan := testPlan()
	plan.CooldownPeriod = time.Hour

	_, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
}

func TestSessionCancellationDuringSleep(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {batchOf("alpha", 1, 5, "msg"), batchOf("alpha", 6, 5, "msg")},
	}}
	sink := &memorySink{}

	ctx, cancel := context.WithCancel(context.Background())
	var sleeps []time.Duration
	session := newTestSession(client, sink, &sleeps)
	session.Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if d == 10*time.Second {
			// Cancel mid batch delay.
			cancel()
		}
		return ctx.Err()
	}

	report, err := session.Run(ctx, []core.SourceID{"alpha"}, testPlan())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "cancelled", report.StoppedBy)
	require.Equal(t, core.StopCancelled, report.Sources[0].StopReason)

	// Work done before cancellation is preserved.
	require.Equal(t, 5, report.Sources[0].MessagesKept)
	require.Len(t, sink.messages, 5)
	require.Equal(t, int64(5), sink.cursors["alpha"])
	require.Equal(t, 5, session.Counters.MessagesToday(session.Clock()))

	// The interrupted source did not spend a daily source slot.
	require.Equal(t, 0, session.Counters.SourceCount())
}

func TestSessionSourceDelayBetweenSources(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {core.ExhaustedOutcome()},
		"beta":  {core.ExhaustedOutcome()},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	_, err := session.Run(context.Background(), []core.SourceID{"alpha", "beta"}, testPlan())
	require.NoError(t, err)
	require.Equal(t, 1, countSleeps(sleeps, 15*time.Second))
}

func TestSessionBulkBatchCap(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			batchOf("alpha", 1, 5, "msg"),
			batchOf("alpha", 6, 5, "msg"),
			batchOf("alpha", 11, 5, "msg"),
		},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)
	session.Bulk = true

	plan := testPlan()
	plan.MaxBatchesBulk = 2

	report, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.NoError(t, err)
	require.Equal(t, 2, report.Sources[0].Batches)
	require.Equal(t, 10, report.TotalKept)
}

func TestSessionProgressPushedPerBatch(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {
			batchOf("alpha", 1, 5, "msg"),
			batchOf("alpha", 6, 5, "msg"),
			core.ExhaustedOutcome(),
		},
	}}
	var sleeps []time.Duration
	session := newTestSession(client, &memorySink{}, &sleeps)

	var pushes []ProgressUpdate
	session.Progress = func(p ProgressUpdate) { pushes = append(pushes, p) }

	_, err := session.Run(context.Background(), []core.SourceID{"alpha"}, testPlan())
	require.NoError(t, err)
	require.Len(t, pushes, 2)
	require.Equal(t, 5, pushes[0].MessagesToday)
	require.Equal(t, 10, pushes[1].MessagesToday)
	require.Equal(t, 100, pushes[1].DailyLimit)
}

func TestSessionResumesFromStoredCursor(t *testing.T) {
	client := &scriptedClient{outcomes: map[core.SourceID][]core.FetchOutcome{
		"alpha": {core.ExhaustedOutcome()},
	}}
	sink := &memorySink{cursors: map[core.SourceID]int64{"alpha": 42}}
	var sleeps []time.Duration
	session := newTestSession(client, sink, &sleeps)

	_, err := session.Run(context.Background(), []core.SourceID{"alpha"}, testPlan())
	require.NoError(t, err)
	require.Equal(t, int64(42), client.calls[0].AfterCursor)
}

func TestSessionRejectsInvalidPlan(t *testing.T) {
	var sleeps []time.Duration
	session := newTestSession(&scriptedClient{}, &memorySink{}, &sleeps)

	plan := testPlan()
	plan.BatchSize = 0

	_, err := session.Run(context.Background(), []core.SourceID{"alpha"}, plan)
	require.Error(t, err)
	require.Contains(t, err.Error(), "batch_size")
}

func countSleeps(sleeps []time.Duration, d time.Duration) int {
	count := 0
	for _, s := range sleeps {
		if s == d {
			count++
		}
	}
	return count
}
