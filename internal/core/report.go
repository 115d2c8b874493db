package core

import "time"

// StopReason records why a source's batch loop ended.
type StopReason string

const (
	StopExhausted   StopReason = "exhausted"
	StopBatchCap    StopReason = "batch_cap"
	StopQuota       StopReason = "quota"
	StopRateLimited StopReason = "rate_limited"
	StopTransient   StopReason = "transient"
	StopCancelled   StopReason = "cancelled"
)

// SourceResult captures what one source contributed to a session.
type SourceResult struct {
	Source       SourceID   `json:"source"`
	MessagesKept int        `json:"messages_kept"`
	Batches      int        `json:"batches"`
	Cursor       int64      `json:"cursor"`
	StopReason   StopReason `json:"stop_reason"`
	Err          error      `json:"-"`
	ErrMessage   string     `json:"error,omitempty"`
}

// SessionReport summarizes one scraping run.
type SessionReport struct {
	Sources     []SourceResult   `json:"sources"`
	Messages    []Message        `json:"-"`
	TotalKept   int              `json:"total_kept"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     time.Time        `json:"ended_at"`
	Counters    CountersSnapshot `json:"counters"`
	StoppedBy   string           `json:"stopped_by,omitempty"`
	PlanApplied SessionPlan      `json:"plan"`
}
