package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/engram/internal/memory"
	"github.com/jackc/pgx/v5"
)

// UpsertEntry writes an entry under key. ON CONFLICT preserves
// created_at and refreshes everything else, keeping key the sole
// identity.
func (s *store) UpsertEntry(ctx context.Context, key string, value json.RawMessage, memoryType string, meta map[string]any) error {
	if memoryType == "" {
		memoryType = "general"
	}

	metaVal, err := metaArg(meta)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO memories (key, value, memory_type, created_at, updated_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			value       = EXCLUDED.value,
			memory_type = EXCLUDED.memory_type,
			updated_at  = EXCLUDED.updated_at,
			metadata    = EXCLUDED.metadata`,
		key, string(value), memoryType, now, now, metaVal,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry for key, or memory.ErrNotFound.
func (s *store) GetEntry(ctx context.Context, key string) (memory.Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT key, value, memory_type, created_at, updated_at, metadata
		FROM memories
		WHERE key = $1`,
		key,
	)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memory.Entry{}, memory.ErrNotFound
		}
		return memory.Entry{}, fmt.Errorf("postgres: get entry: %w", err)
	}
	return entry, nil
}

// SearchEntries returns entries whose key or value contains query,
// most recently updated first. ILIKE gives the case-insensitive match
// the search contract documents.
func (s *store) SearchEntries(ctx context.Context, query, memoryType string, limit int) ([]memory.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	pattern := "%" + query + "%"
	args := []any{pattern}
	q := `
		SELECT key, value, memory_type, created_at, updated_at, metadata
		FROM memories
		WHERE (key ILIKE $1 OR value::text ILIKE $1)`
	if memoryType != "" {
		q += " AND memory_type = $2"
		args = append(args, memoryType)
	}
	q += fmt.Sprintf(" ORDER BY updated_at DESC, key ASC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: search entries: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search entries rows: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (memory.Entry, error) {
	var (
		entry    memory.Entry
		valueRaw []byte
		metaRaw  []byte
	)

	if err := row.Scan(&entry.Key, &valueRaw, &entry.MemoryType, &entry.CreatedAt, &entry.UpdatedAt, &metaRaw); err != nil {
		return entry, err
	}

	entry.Value = json.RawMessage(valueRaw)

	meta, err := unmarshalMeta(metaRaw)
	if err != nil {
		return entry, err
	}
	entry.Metadata = meta

	return entry, nil
}
