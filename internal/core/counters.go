package core

import (
	"sync"
	"time"
)

// UsageCounters tracks consumption against quotas. The session runner is
// the only writer; readers (progress reporting) take consistent snapshots.
type UsageCounters struct {
	mu sync.RWMutex

	messagesThisHour   int
	hourWindowStart    time.Time
	messagesToday      int
	dayWindowStart     time.Time
	sourcesToday       map[SourceID]struct{}
	lastSessionEndedAt time.Time
}

// CountersSnapshot is a consistent copy of the usage state.
type CountersSnapshot struct {
	MessagesThisHour   int        `json:"messages_this_hour"`
	HourWindowStart    time.Time  `json:"hour_window_start"`
	MessagesToday      int        `json:"messages_today"`
	DayWindowStart     time.Time  `json:"day_window_start"`
	SourcesToday       []SourceID `json:"sources_today"`
	LastSessionEndedAt time.Time  `json:"last_session_ended_at"`
}

// NewUsageCounters returns zeroed counters with both windows starting now.
func NewUsageCounters(now time.Time) *UsageCounters {
	return &UsageCounters{
		hourWindowStart: now,
		dayWindowStart:  now,
		sourcesToday:    make(map[SourceID]struct{}),
	}
}

// RestoreUsageCounters rebuilds counters from a persisted snapshot,
// applying window rollovers against now.
func RestoreUsageCounters(snap CountersSnapshot, now time.Time) *UsageCounters {
	c := &UsageCounters{
		messagesThisHour:   snap.MessagesThisHour,
		hourWindowStart:    snap.HourWindowStart,
		messagesToday:      snap.MessagesToday,
		dayWindowStart:     snap.DayWindowStart,
		sourcesToday:       make(map[SourceID]struct{}, len(snap.SourcesToday)),
		lastSessionEndedAt: snap.LastSessionEndedAt,
	}
	for _, id := range snap.SourcesToday {
		c.sourcesToday[id] = struct{}{}
	}
	c.mu.Lock()
	c.roll(now)
	c.mu.Unlock()
	return c
}

// roll applies window resets. Caller holds the write lock.
func (c *UsageCounters) roll(now time.Time) {
	if c.hourWindowStart.IsZero() || now.Sub(c.hourWindowStart) > time.Hour {
		c.messagesThisHour = 0
		c.hourWindowStart = now
	}
	if c.dayWindowStart.IsZero() || now.Sub(c.dayWindowStart) > 24*time.Hour {
		c.messagesToday = 0
		c.dayWindowStart = now
		c.sourcesToday = make(map[SourceID]struct{})
	}
}

// Roll applies any pending window rollovers.
func (c *UsageCounters) Roll(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
}

// AddMessages records n kept messages against both windows.
func (c *UsageCounters) AddMessages(n int, now time.Time) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	c.messagesThisHour += n
	c.messagesToday += n
}

// MarkSource records a source as consumed today.
func (c *UsageCounters) MarkSource(id SourceID, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	c.sourcesToday[id] = struct{}{}
}

// HasSource reports whether the source already counted against today.
func (c *UsageCounters) HasSource(id SourceID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sourcesToday[id]
	return ok
}

// SourceCount returns the number of distinct sources consumed today.
func (c *UsageCounters) SourceCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sourcesToday)
}

// MessagesThisHour returns the current hourly count after rollover.
func (c *UsageCounters) MessagesThisHour(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	return c.messagesThisHour
}

// MessagesToday returns the current daily count after rollover.
func (c *UsageCounters) MessagesToday(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	return c.messagesToday
}

// EndSession stamps the session end time used by the cooldown gate.
func (c *UsageCounters) EndSession(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSessionEndedAt = now
}

// LastSessionEndedAt returns the previous session's end time.
func (c *UsageCounters) LastSessionEndedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSessionEndedAt
}

// Snapshot returns a consistent copy for progress reporting and persistence.
func (c *UsageCounters) Snapshot() CountersSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sources := make([]SourceID, 0, len(c.sourcesToday))
	for id := range c.sourcesToday {
		sources = append(sources, id)
	}
	return CountersSnapshot{
		MessagesThisHour:   c.messagesThisHour,
		HourWindowStart:    c.hourWindowStart,
		MessagesToday:      c.messagesToday,
		DayWindowStart:     c.dayWindowStart,
		SourcesToday:       sources,
		LastSessionEndedAt: c.lastSessionEndedAt,
	}
}

// Reset clears all usage state, including the cooldown stamp.
func (c *UsageCounters) Reset(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesThisHour = 0
	c.hourWindowStart = now
	c.messagesToday = 0
	c.dayWindowStart = now
	c.sourcesToday = make(map[SourceID]struct{})
	c.lastSessionEndedAt = time.Time{}
}
