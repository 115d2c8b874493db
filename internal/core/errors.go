package core

import (
	"errors"
	"fmt"
	"time"
)

// QuotaScope names which quota a stop decision was made against.
type QuotaScope string

const (
	QuotaHourly  QuotaScope = "hourly"
	QuotaDaily   QuotaScope = "daily"
	QuotaSources QuotaScope = "sources"
)

// ErrExhausted signals normal end-of-source; not a failure.
var ErrExhausted = errors.New("source exhausted")

// QuotaExceededError stops the whole session. It carries enough context
// for the caller to know which threshold was hit and where.
type QuotaExceededError struct {
	Scope   QuotaScope
	Source  SourceID
	Limit   int
	Current int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s limit %d reached (current %d, source %q)",
		e.Scope, e.Limit, e.Current, e.Source)
}

// CooldownActiveError refuses to start a session inside the cooldown window.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active: %s remaining", e.Remaining.Round(time.Second))
}

// SourceAbandonedError records why one source was skipped after retries.
// The outer loop continues; this surfaces in the session report only.
type SourceAbandonedError struct {
	Source      SourceID
	RateLimited bool
	Attempts    int
	Cause       error
}

func (e *SourceAbandonedError) Error() string {
	kind := "transient failures"
	if e.RateLimited {
		kind = "rate limiting"
	}
	return fmt.Sprintf("source %q abandoned after %d attempts (%s)", e.Source, e.Attempts, kind)
}

func (e *SourceAbandonedError) Unwrap() error { return e.Cause }

// IsQuotaExceeded reports whether err is a session-fatal quota stop.
func IsQuotaExceeded(err error) bool {
	var q *QuotaExceededError
	return errors.As(err, &q)
}

// IsCooldownActive reports whether err is a cooldown precondition failure.
func IsCooldownActive(err error) bool {
	var c *CooldownActiveError
	return errors.As(err, &c)
}
