package core

import "time"

// SourceType identifies the kind of message source.
type SourceType string

const (
	SourceTypeChannel SourceType = "channel"
	SourceTypeGroup   SourceType = "group"
)

// SourceID identifies a channel or group messages are fetched from.
type SourceID string

// Message is one scraped message with its filter annotations.
type Message struct {
	ID              int64      `json:"id"`
	Source          SourceID   `json:"source"`
	SourceType      SourceType `json:"source_type,omitempty"`
	Sender          string     `json:"sender,omitempty"`
	Text            string     `json:"text"`
	Date            time.Time  `json:"date"`
	ScrapedAt       time.Time  `json:"scraped_at"`
	KeywordsMatched []string   `json:"keywords_matched,omitempty"`
}

// FetchRequest asks a source client for the next batch of messages.
type FetchRequest struct {
	Source      SourceID
	AfterCursor int64
	BatchSize   int
	Attempt     int
}

// OutcomeKind discriminates the result of one fetch call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeTransientFailure
	OutcomeExhausted
)

// FetchOutcome is the polymorphic result of one fetch call.
type FetchOutcome struct {
	Kind       OutcomeKind
	Messages   []Message
	RetryAfter time.Duration
	Err        error
}

// Success wraps a fetched batch.
func Success(messages []Message) FetchOutcome {
	return FetchOutcome{Kind: OutcomeSuccess, Messages: messages}
}

// RateLimitedOutcome signals the provider asked us to back off.
func RateLimitedOutcome(retryAfter time.Duration) FetchOutcome {
	return FetchOutcome{Kind: OutcomeRateLimited, RetryAfter: retryAfter}
}

// TransientOutcome signals a retryable failure.
func TransientOutcome(err error) FetchOutcome {
	return FetchOutcome{Kind: OutcomeTransientFailure, Err: err}
}

// ExhaustedOutcome signals the source has no more messages.
func ExhaustedOutcome() FetchOutcome {
	return FetchOutcome{Kind: OutcomeExhausted}
}
