package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// LoadUsage returns the persisted usage counters snapshot, or nil when no
// session has run yet.
func (s *Store) LoadUsage(ctx context.Context) (*core.CountersSnapshot, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		messagesThisHour int
		hourWindowStart  int64
		messagesToday    int
		dayWindowStart   int64
		sourcesJSON      string
		lastSessionEnded sql.NullInt64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT messages_this_hour, hour_window_start, messages_today, day_window_start, sources_today, last_session_ended_at
		FROM usage
		WHERE id = 1
	`)
	if err := row.Scan(&messagesThisHour, &hourWindowStart, &messagesToday, &dayWindowStart, &sourcesJSON, &lastSessionEnded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load usage counters: %w", err)
	}

	snap := &core.CountersSnapshot{
		MessagesThisHour: messagesThisHour,
		MessagesToday:    messagesToday,
	}
	if hourWindowStart > 0 {
		snap.HourWindowStart = time.Unix(hourWindowStart, 0).UTC()
	}
	if dayWindowStart > 0 {
		snap.DayWindowStart = time.Unix(dayWindowStart, 0).UTC()
	}
	if lastSessionEnded.Valid {
		snap.LastSessionEndedAt = time.Unix(lastSessionEnded.Int64, 0).UTC()
	}
	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &snap.SourcesToday); err != nil {
			return nil, fmt.Errorf("decode usage sources: %w", err)
		}
	}

	return snap, nil
}

// SaveUsage persists a usage counters snapshot.
func (s *Store) SaveUsage(ctx context.Context, snap core.CountersSnapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sources := snap.SourcesToday
	if sources == nil {
		sources = []core.SourceID{}
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("encode usage sources: %w", err)
	}

	var lastEnded any
	if !snap.LastSessionEndedAt.IsZero() {
		lastEnded = snap.LastSessionEndedAt.UTC().Unix()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO usage (id, messages_this_hour, hour_window_start, messages_today, day_window_start, sources_today, last_session_ended_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			messages_this_hour = excluded.messages_this_hour,
			hour_window_start = excluded.hour_window_start,
			messages_today = excluded.messages_today,
			day_window_start = excluded.day_window_start,
			sources_today = excluded.sources_today,
			last_session_ended_at = excluded.last_session_ended_at
	`,
		snap.MessagesThisHour,
		unixOrZero(snap.HourWindowStart),
		snap.MessagesToday,
		unixOrZero(snap.DayWindowStart),
		string(payload),
		lastEnded,
	)
	if err != nil {
		return fmt.Errorf("save usage counters: %w", err)
	}
	return nil
}

// ResetUsage clears the persisted usage counters.
func (s *Store) ResetUsage(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM usage WHERE id = 1`); err != nil {
		return fmt.Errorf("reset usage counters: %w", err)
	}
	return nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}
