package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_type TEXT NOT NULL DEFAULT 'channel',
		source_name TEXT NOT NULL,
		message_id INTEGER NOT NULL,
		sender TEXT,
		message_text TEXT NOT NULL,
		keywords_matched TEXT,
		date INTEGER NOT NULL,
		scraped_at INTEGER NOT NULL,
		indexed_at INTEGER,
		UNIQUE(source_name, message_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_source ON messages(source_name);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unindexed ON messages(indexed_at) WHERE indexed_at IS NULL;`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		message_text,
		content='messages',
		content_rowid='id'
	);`,
	`CREATE TRIGGER IF NOT EXISTS messages_fts_insert AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, message_text) VALUES (new.id, new.message_text);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS messages_fts_delete AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, message_text) VALUES ('delete', old.id, old.message_text);
	END;`,
	`CREATE TABLE IF NOT EXISTS sources (
		name TEXT PRIMARY KEY,
		source_type TEXT NOT NULL DEFAULT 'channel',
		cursor INTEGER NOT NULL DEFAULT 0,
		last_scraped INTEGER,
		message_count INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		messages_this_hour INTEGER NOT NULL DEFAULT 0,
		hour_window_start INTEGER NOT NULL DEFAULT 0,
		messages_today INTEGER NOT NULL DEFAULT 0,
		day_window_start INTEGER NOT NULL DEFAULT 0,
		sources_today TEXT NOT NULL DEFAULT '[]',
		last_session_ended_at INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS profiles (
		name TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		is_builtin INTEGER DEFAULT 0,
		updated_at INTEGER
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	if err := s.ensureColumn(ctx, "messages", "indexed_at", "INTEGER"); err != nil {
		return err
	}

	return nil
}

func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s columns: %w", table, err)
	}

	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}

	return nil
}
