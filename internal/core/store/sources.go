package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// SourceRecord captures persisted per-source scraping state.
type SourceRecord struct {
	Name         core.SourceID
	Type         core.SourceType
	Cursor       int64
	LastScraped  time.Time
	MessageCount int
}

// Cursor returns the last fetched message id for a source, zero when the
// source has never been scraped.
func (s *Store) Cursor(ctx context.Context, source core.SourceID) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var cursor int64
	row := s.DB.QueryRowContext(ctx, `SELECT cursor FROM sources WHERE name = ?`, string(source))
	if err := row.Scan(&cursor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetch cursor for %q: %w", source, err)
	}
	return cursor, nil
}

// SaveCursor advances the stored cursor and scrape stamp for a source.
func (s *Store) SaveCursor(ctx context.Context, source core.SourceID, cursor int64) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	name := strings.TrimSpace(string(source))
	if name == "" {
		return errors.New("source name is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sources (name, cursor, last_scraped, message_count)
		VALUES (?, ?, ?, (SELECT COUNT(*) FROM messages WHERE source_name = ?))
		ON CONFLICT(name) DO UPDATE SET
			cursor = excluded.cursor,
			last_scraped = excluded.last_scraped,
			message_count = excluded.message_count
	`, name, cursor, time.Now().UTC().Unix(), name)
	if err != nil {
		return fmt.Errorf("save cursor for %q: %w", source, err)
	}
	return nil
}

// ListSources returns all known sources ordered by name.
func (s *Store) ListSources(ctx context.Context) ([]SourceRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT name, source_type, cursor, last_scraped, message_count
		FROM sources
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []SourceRecord
	for rows.Next() {
		var (
			name        string
			sourceType  string
			cursor      int64
			lastScraped sql.NullInt64
			count       int
		)
		if err := rows.Scan(&name, &sourceType, &cursor, &lastScraped, &count); err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		record := SourceRecord{
			Name:         core.SourceID(name),
			Type:         core.SourceType(sourceType),
			Cursor:       cursor,
			MessageCount: count,
		}
		if lastScraped.Valid {
			record.LastScraped = time.Unix(lastScraped.Int64, 0).UTC()
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	return records, nil
}
