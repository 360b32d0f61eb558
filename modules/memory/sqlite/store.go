package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// UpsertEntry writes an entry under key. ON CONFLICT preserves
// created_at and refreshes everything else, keeping key the sole
// identity.
func (s *store) UpsertEntry(ctx context.Context, key string, value json.RawMessage, memoryType string, meta map[string]any) error {
	if memoryType == "" {
		memoryType = "general"
	}

	metaVal, err := marshalMeta(meta)
	if err != nil {
		return err
	}

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (key, value, memory_type, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value       = excluded.value,
			memory_type = excluded.memory_type,
			updated_at  = excluded.updated_at,
			metadata    = excluded.metadata`,
		key, string(value), memoryType, now, now, metaVal,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry for key, or memory.ErrNotFound.
func (s *store) GetEntry(ctx context.Context, key string) (memory.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, value, memory_type, created_at, updated_at, metadata
		FROM memories
		WHERE key = ?`,
		key,
	)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return memory.Entry{}, memory.ErrNotFound
		}
		return memory.Entry{}, err
	}
	return entry, nil
}

// SearchEntries returns entries whose key or value contains query,
// most recently updated first. SQLite LIKE is case-insensitive for
// ASCII, matching the documented search contract.
func (s *store) SearchEntries(ctx context.Context, query, memoryType string, limit int) ([]memory.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	pattern := "%" + query + "%"
	args := []any{pattern, pattern}
	q := `
		SELECT key, value, memory_type, created_at, updated_at, metadata
		FROM memories
		WHERE (key LIKE ? OR value LIKE ?)`
	if memoryType != "" {
		q += " AND memory_type = ?"
		args = append(args, memoryType)
	}
	q += " ORDER BY updated_at DESC, key ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []memory.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: search entries rows: %w", err)
	}

	return entries, nil
}

func scanEntry(sc scanner) (memory.Entry, error) {
	var (
		entry      memory.Entry
		value      string
		created    string
		updated    string
		metaRaw    sql.NullString
		memoryType string
	)

	if err := sc.Scan(&entry.Key, &value, &memoryType, &created, &updated, &metaRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, fmt.Errorf("sqlite: scan entry: %w", err)
	}

	entry.Value = json.RawMessage(value)
	entry.MemoryType = memoryType

	var err error
	if entry.CreatedAt, err = parseTime(created); err != nil {
		return entry, err
	}
	if entry.UpdatedAt, err = parseTime(updated); err != nil {
		return entry, err
	}
	if entry.Metadata, err = unmarshalMeta(metaRaw); err != nil {
		return entry, err
	}

	return entry, nil
}
