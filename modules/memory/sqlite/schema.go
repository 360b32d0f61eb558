package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schemaVersion = 1

// timeLayout is a fixed-width RFC 3339 layout. Fixed fractional digits
// keep stored timestamps lexicographically sortable, which the turn and
// knowledge ordering queries rely on. All stored times are UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application. AUTOINCREMENT
// keeps turn and knowledge IDs strictly increasing and never reused.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS turns (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL,
		timestamp      TEXT NOT NULL,
		user_input     TEXT NOT NULL,
		agent_response TEXT NOT NULL,
		context        TEXT NOT NULL DEFAULT '',
		metadata       TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, timestamp, id)`,

	`CREATE TABLE IF NOT EXISTS memories (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		memory_type TEXT NOT NULL DEFAULT 'general',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		metadata    TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_memories_updated ON memories(updated_at)`,

	`CREATE TABLE IF NOT EXISTS knowledge (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		topic      TEXT NOT NULL,
		content    TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 1.0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		metadata   TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_knowledge_rank ON knowledge(confidence, created_at)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	// Ensure schema_version table exists first.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
