package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements are executed in order on startup. All DDL uses
// IF NOT EXISTS so re-application against an existing database is a
// no-op. BIGSERIAL keeps turn and knowledge IDs strictly increasing.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS turns (
		id             BIGSERIAL PRIMARY KEY,
		session_id     TEXT NOT NULL,
		timestamp      TIMESTAMPTZ NOT NULL,
		user_input     TEXT NOT NULL,
		agent_response TEXT NOT NULL,
		context        TEXT NOT NULL DEFAULT '',
		metadata       JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns (session_id, timestamp, id)`,

	`CREATE TABLE IF NOT EXISTS memories (
		key         TEXT PRIMARY KEY,
		value       JSONB NOT NULL,
		memory_type TEXT NOT NULL DEFAULT 'general',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		metadata    JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS idx_memories_updated ON memories (updated_at)`,

	`CREATE TABLE IF NOT EXISTS knowledge (
		id         BIGSERIAL PRIMARY KEY,
		topic      TEXT NOT NULL,
		content    TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		metadata   JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS idx_knowledge_rank ON knowledge (confidence, created_at)`,
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// metaArg converts a metadata map to its JSONB parameter form. A nil
// map becomes SQL NULL so absent and empty metadata stay
// distinguishable.
func metaArg(meta map[string]any) (any, error) {
	if meta == nil {
		return nil, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMeta(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal metadata: %w", err)
	}
	return meta, nil
}
