package engine

import (
	"context"
	"errors"
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// Fetcher retrieves one batch of messages from a source.
type Fetcher interface {
	Fetch(ctx context.Context, req core.FetchRequest) (core.FetchOutcome, error)
}

// Sink persists kept messages and per-source cursors.
type Sink interface {
	SaveMessages(ctx context.Context, messages []core.Message) error
	Cursor(ctx context.Context, source core.SourceID) (int64, error)
	SaveCursor(ctx context.Context, source core.SourceID, cursor int64) error
}

// ProgressUpdate is pushed to the progress reporter after every batch
// and on every quota stop.
type ProgressUpdate struct {
	MessagesThisHour int              `json:"messages_this_hour"`
	HourlyLimit      int              `json:"hourly_limit"`
	MessagesToday    int              `json:"messages_today"`
	DailyLimit       int              `json:"daily_limit"`
	SourcesToday     int              `json:"sources_today"`
	MaxSourcesPerDay int              `json:"max_sources_per_day"`
	Snapshot         core.CountersSnapshot `json:"-"`
}

// ProgressFunc receives progress pushes; fire-and-forget.
type ProgressFunc func(ProgressUpdate)

const (
	defaultBaseDelay  = time.Second
	defaultRetryFloor = 5 * time.Second
)

// Session runs the rate-limited fetch loop over an ordered source list.
// Sources are processed strictly one at a time; there is no parallel
// fetching, because concurrency is exactly what the pacing must avoid.
type Session struct {
	Client   Fetcher
	Store    Sink
	Counters *core.UsageCounters
	Filter   *core.KeywordFilter
	Progress ProgressFunc

	// Bulk applies MaxBatchesBulk instead of MaxBatchesPerSource.
	Bulk bool

	// BaseDelay seeds the exponential backoff; RetryFloor is the minimum
	// wait honored on a rate-limit response.
	BaseDelay  time.Duration
	RetryFloor time.Duration

	Clock  func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
}

// Run executes one session and returns its report. A QuotaExceededError
// or CooldownActiveError stops the whole session; per-source failures are
// recorded in the report and the outer loop continues.
func (s *Session) Run(ctx context.Context, sources []core.SourceID, plan core.SessionPlan) (*core.SessionReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	s.Counters.Roll(now)

	if plan.CooldownPeriod > 0 {
		if last := s.Counters.LastSessionEndedAt(); !last.IsZero() {
			if remaining := plan.CooldownPeriod - now.Sub(last); remaining > 0 {
				return nil, &core.CooldownActiveError{Remaining: remaining}
			}
		}
	}

	report := &core.SessionReport{StartedAt: now, PlanApplied: plan}
	defer func() {
		report.EndedAt = s.now()
		s.Counters.EndSession(report.EndedAt)
		report.Counters = s.Counters.Snapshot()
	}()

	maxBatches := plan.MaxBatches(s.Bulk)

	var runErr error
	for i, src := range sources {
		if err := s.checkQuotas(src, plan); err != nil {
			s.pushProgress(plan)
			report.StoppedBy = err.Error()
			runErr = err
			break
		}

		result := s.scrapeSource(ctx, src, plan, maxBatches, report)
		report.Sources = append(report.Sources, result)
		report.TotalKept += result.MessagesKept

		// Only a completed scrape spends a slot of the daily source
		// quota. Abandoned or cancelled sources can be retried later.
		switch result.StopReason {
		case core.StopExhausted, core.StopBatchCap, core.StopQuota:
			s.Counters.MarkSource(src, s.now())
		}

		if result.StopReason == core.StopCancelled {
			report.StoppedBy = "cancelled"
			runErr = result.Err
			break
		}

		if i < len(sources)-1 {
			if err := s.sleep(ctx, plan.SourceDelay); err != nil {
				report.StoppedBy = "cancelled"
				runErr = err
				break
			}
		}
	}

	return report, runErr
}

// checkQuotas enforces the session-fatal pre-source quota gates.
func (s *Session) checkQuotas(src core.SourceID, plan core.SessionPlan) error {
	now := s.now()

	if s.Counters.SourceCount() >= plan.MaxSourcesPerDay && !s.Counters.HasSource(src) {
		return &core.QuotaExceededError{
			Scope:   core.QuotaSources,
			Source:  src,
			Limit:   plan.MaxSourcesPerDay,
			Current: s.Counters.SourceCount(),
		}
	}
	if today := s.Counters.MessagesToday(now); today >= plan.DailyLimit {
		return &core.QuotaExceededError{
			Scope:   core.QuotaDaily,
			Source:  src,
			Limit:   plan.DailyLimit,
			Current: today,
		}
	}
	if hour := s.Counters.MessagesThisHour(now); hour >= plan.HourlyLimit {
		return &core.QuotaExceededError{
			Scope:   core.QuotaHourly,
			Source:  src,
			Limit:   plan.HourlyLimit,
			Current: hour,
		}
	}
	return nil
}

func (s *Session) scrapeSource(ctx context.Context, src core.SourceID, plan core.SessionPlan, maxBatches int, report *core.SessionReport) core.SourceResult {
	result := core.SourceResult{Source: src}

	cursor := s.loadCursor(ctx, src)
	result.Cursor = cursor

	attempt := 0
	rateRetries := 0

	for batch := 0; batch < maxBatches; {
		if err := s.sleep(ctx, s.jittered(plan.RateLimitDelay)); err != nil {
			return s.cancelled(result, err)
		}

		outcome, err := s.Client.Fetch(ctx, core.FetchRequest{
			Source:      src,
			AfterCursor: cursor,
			BatchSize:   plan.BatchSize,
			Attempt:     attempt,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return s.cancelled(result, err)
			}
			outcome = core.TransientOutcome(err)
		}

		switch outcome.Kind {
		case core.OutcomeSuccess:
			if len(outcome.Messages) == 0 {
				result.StopReason = core.StopExhausted
				return result
			}

			// Cursor advances past the raw batch so filtered-out
			// messages are never re-fetched.
			cursor = outcome.Messages[len(outcome.Messages)-1].ID
			result.Cursor = cursor

			kept := s.Filter.Apply(outcome.Messages)
			now := s.now()
			remaining := s.remainingBudget(plan, now)
			truncated := false
			if len(kept) > remaining {
				kept = kept[:remaining]
				truncated = true
			}

			s.Counters.AddMessages(len(kept), now)
			if err := s.persist(ctx, src, kept, cursor); err != nil {
				result.StopReason = core.StopTransient
				result.Err = err
				result.ErrMessage = err.Error()
				return result
			}
			report.Messages = append(report.Messages, kept...)
			result.MessagesKept += len(kept)
			result.Batches++
			s.pushProgress(plan)

			attempt = 0
			rateRetries = 0

			if truncated {
				result.StopReason = core.StopQuota
				return result
			}

			batch++
			if batch < maxBatches {
				if err := s.sleep(ctx, s.jittered(plan.BatchDelay)); err != nil {
					return s.cancelled(result, err)
				}
			}

		case core.OutcomeRateLimited:
			if rateRetries >= plan.MaxRetries {
				result.StopReason = core.StopRateLimited
				abandoned := &core.SourceAbandonedError{Source: src, RateLimited: true, Attempts: rateRetries}
				result.Err = abandoned
				result.ErrMessage = abandoned.Error()
				return result
			}
			rateRetries++
			wait := outcome.RetryAfter
			if wait < s.retryFloor() {
				wait = s.retryFloor()
			}
			if err := s.sleep(ctx, wait); err != nil {
				return s.cancelled(result, err)
			}

		case core.OutcomeTransientFailure:
			if attempt >= plan.MaxRetries {
				result.StopReason = core.StopTransient
				abandoned := &core.SourceAbandonedError{Source: src, Attempts: attempt, Cause: outcome.Err}
				result.Err = abandoned
				result.ErrMessage = abandoned.Error()
				return result
			}
			wait := s.backoff(attempt)
			attempt++
			if err := s.sleep(ctx, wait); err != nil {
				return s.cancelled(result, err)
			}

		case core.OutcomeExhausted:
			result.StopReason = core.StopExhausted
			return result
		}
	}

	result.StopReason = core.StopBatchCap
	return result
}

// remainingBudget returns how many more messages may be kept right now.
func (s *Session) remainingBudget(plan core.SessionPlan, now time.Time) int {
	daily := plan.DailyLimit - s.Counters.MessagesToday(now)
	hourly := plan.HourlyLimit - s.Counters.MessagesThisHour(now)
	remaining := daily
	if hourly < remaining {
		remaining = hourly
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *Session) persist(ctx context.Context, src core.SourceID, messages []core.Message, cursor int64) error {
	if s.Store == nil {
		return nil
	}
	if len(messages) > 0 {
		if err := s.Store.SaveMessages(ctx, messages); err != nil {
			return err
		}
	}
	return s.Store.SaveCursor(ctx, src, cursor)
}

func (s *Session) loadCursor(ctx context.Context, src core.SourceID) int64 {
	if s.Store == nil {
		return 0
	}
	cursor, err := s.Store.Cursor(ctx, src)
	if err != nil {
		return 0
	}
	return cursor
}

func (s *Session) pushProgress(plan core.SessionPlan) {
	if s.Progress == nil {
		return
	}
	snap := s.Counters.Snapshot()
	s.Progress(ProgressUpdate{
		MessagesThisHour: snap.MessagesThisHour,
		HourlyLimit:      plan.HourlyLimit,
		MessagesToday:    snap.MessagesToday,
		DailyLimit:       plan.DailyLimit,
		SourcesToday:     len(snap.SourcesToday),
		MaxSourcesPerDay: plan.MaxSourcesPerDay,
		Snapshot:         snap,
	})
}

func (s *Session) cancelled(result core.SourceResult, err error) core.SourceResult {
	result.StopReason = core.StopCancelled
	result.Err = err
	result.ErrMessage = err.Error()
	return result
}

// sleep suspends for d, checking for cancellation immediately before and
// after the wait so the loop exits cleanly with counters intact.
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		if s.Sleep != nil {
			if err := s.Sleep(ctx, d); err != nil {
				return err
			}
		} else {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return ctx.Err()
}

func (s *Session) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
