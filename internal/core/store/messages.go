package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// SaveMessages appends kept messages, ignoring duplicates by
// (source_name, message_id) so re-running a cursor range is idempotent.
func (s *Store) SaveMessages(ctx context.Context, messages []core.Message) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if len(messages) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save messages: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // best-effort cleanup on rollback

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (source_type, source_name, message_id, sender, message_text, keywords_matched, date, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_name, message_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare save messages: %w", err)
	}
	defer stmt.Close() // nolint:errcheck // best-effort cleanup on statement

	for _, msg := range messages {
		sourceType := msg.SourceType
		if sourceType == "" {
			sourceType = core.SourceTypeChannel
		}
		var keywords any
		if len(msg.KeywordsMatched) > 0 {
			payload, err := json.Marshal(msg.KeywordsMatched)
			if err != nil {
				return fmt.Errorf("encode keywords: %w", err)
			}
			keywords = string(payload)
		}
		if _, err := stmt.ExecContext(ctx,
			string(sourceType),
			string(msg.Source),
			msg.ID,
			msg.Sender,
			msg.Text,
			keywords,
			msg.Date.UTC().Unix(),
			msg.ScrapedAt.UTC().Unix(),
		); err != nil {
			return fmt.Errorf("save message %d from %q: %w", msg.ID, msg.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save messages: %w", err)
	}
	return nil
}

// SearchResult pairs a stored message with its search rank.
type SearchResult struct {
	Message core.Message
	Rank    float64
}

// Search runs a full-text query over stored message text.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT m.id, m.source_type, m.source_name, m.message_id, m.sender, m.message_text, m.keywords_matched, m.date, m.scraped_at, messages_fts.rank
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		WHERE messages_fts MATCH ?
		ORDER BY messages_fts.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var results []SearchResult
	for rows.Next() {
		var (
			rowID int64
			rank  float64
		)
		msg, err := scanMessage(rows, &rowID, &rank)
		if err != nil {
			return nil, fmt.Errorf("search messages: %w", err)
		}
		results = append(results, SearchResult{Message: msg, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	return results, nil
}

// StoredMessage pairs a message with its database row id.
type StoredMessage struct {
	RowID   int64
	Message core.Message
}

// UnindexedMessages returns messages not yet pushed to the vector index.
func (s *Store) UnindexedMessages(ctx context.Context, limit int) ([]StoredMessage, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, source_type, source_name, message_id, sender, message_text, keywords_matched, date, scraped_at, 0
		FROM messages
		WHERE indexed_at IS NULL
		ORDER BY id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unindexed messages: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var stored []StoredMessage
	for rows.Next() {
		var (
			rowID int64
			rank  float64
		)
		msg, err := scanMessage(rows, &rowID, &rank)
		if err != nil {
			return nil, fmt.Errorf("list unindexed messages: %w", err)
		}
		stored = append(stored, StoredMessage{RowID: rowID, Message: msg})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unindexed messages: %w", err)
	}

	return stored, nil
}

// MarkIndexed stamps rows as pushed to the vector index.
func (s *Store) MarkIndexed(ctx context.Context, rowIDs []int64, at time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if len(rowIDs) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stamp := at.UTC().Unix()
	for _, id := range rowIDs {
		if _, err := s.DB.ExecContext(ctx, `UPDATE messages SET indexed_at = ? WHERE id = ?`, stamp, id); err != nil {
			return fmt.Errorf("mark message %d indexed: %w", id, err)
		}
	}
	return nil
}

// SourceStat aggregates per-source message counts.
type SourceStat struct {
	Source       core.SourceID
	MessageCount int
	LastScraped  time.Time
}

// Stats summarizes stored messages.
type Stats struct {
	TotalMessages int
	TotalSources  int
	Unindexed     int
	TopSources    []SourceStat
}

// GetStats aggregates message and source counts.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := &Stats{}
	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(DISTINCT source_name),
			COUNT(*) FILTER (WHERE indexed_at IS NULL)
		FROM messages
	`)
	if err := row.Scan(&stats.TotalMessages, &stats.TotalSources, &stats.Unindexed); err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_name, COUNT(*), MAX(scraped_at)
		FROM messages
		GROUP BY source_name
		ORDER BY COUNT(*) DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate source stats: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			name        string
			count       int
			lastScraped sql.NullInt64
		)
		if err := rows.Scan(&name, &count, &lastScraped); err != nil {
			return nil, fmt.Errorf("aggregate source stats: %w", err)
		}
		stat := SourceStat{Source: core.SourceID(name), MessageCount: count}
		if lastScraped.Valid {
			stat.LastScraped = time.Unix(lastScraped.Int64, 0).UTC()
		}
		stats.TopSources = append(stats.TopSources, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate source stats: %w", err)
	}

	return stats, nil
}

func scanMessage(rows *sql.Rows, rowID *int64, rank *float64) (core.Message, error) {
	var (
		sourceType string
		sourceName string
		messageID  int64
		sender     sql.NullString
		text       string
		keywords   sql.NullString
		date       int64
		scrapedAt  int64
	)
	if err := rows.Scan(rowID, &sourceType, &sourceName, &messageID, &sender, &text, &keywords, &date, &scrapedAt, rank); err != nil {
		return core.Message{}, err
	}

	msg := core.Message{
		ID:         messageID,
		Source:     core.SourceID(sourceName),
		SourceType: core.SourceType(sourceType),
		Text:       text,
		Date:       time.Unix(date, 0).UTC(),
		ScrapedAt:  time.Unix(scrapedAt, 0).UTC(),
	}
	if sender.Valid {
		msg.Sender = sender.String
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &msg.KeywordsMatched); err != nil {
			return core.Message{}, fmt.Errorf("decode keywords: %w", err)
		}
	}
	return msg, nil
}
