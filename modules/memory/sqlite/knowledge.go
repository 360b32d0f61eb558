package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// AppendKnowledge records a knowledge entry and returns its ID.
// Confidence is stored as given; clamping is the writer's job.
func (s *store) AppendKnowledge(ctx context.Context, topic, content, source string, confidence float64, meta map[string]any) (int64, error) {
	metaVal, err := marshalMeta(meta)
	if err != nil {
		return 0, err
	}

	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge (topic, content, source, confidence, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		topic, content, source, confidence, now, now, metaVal,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: append knowledge: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: knowledge id: %w", err)
	}
	return id, nil
}

// SearchKnowledge returns entries matching query with confidence >=
// minConfidence, ordered by confidence descending then recency.
func (s *store) SearchKnowledge(ctx context.Context, query string, minConfidence float64, limit int) ([]memory.Knowledge, error) {
	if limit <= 0 {
		return nil, nil
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, content, source, confidence, created_at, updated_at, metadata
		FROM knowledge
		WHERE (topic LIKE ? OR content LIKE ?) AND confidence >= ?
		ORDER BY confidence DESC, created_at DESC, id DESC
		LIMIT ?`,
		pattern, pattern, minConfidence, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search knowledge: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []memory.Knowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: search knowledge rows: %w", err)
	}

	return results, nil
}

// Stats returns current table counts.
func (s *store) Stats(ctx context.Context) (memory.Stats, error) {
	var stats memory.Stats
	for _, c := range []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM turns", &stats.Turns},
		{"SELECT COUNT(*) FROM memories", &stats.Entries},
		{"SELECT COUNT(*) FROM knowledge", &stats.Knowledge},
	} {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return memory.Stats{}, fmt.Errorf("sqlite: stats: %w", err)
		}
	}
	return stats, nil
}

func scanKnowledge(sc scanner) (memory.Knowledge, error) {
	var (
		k       memory.Knowledge
		created string
		updated string
		metaRaw sql.NullString
	)

	if err := sc.Scan(&k.ID, &k.Topic, &k.Content, &k.Source, &k.Confidence, &created, &updated, &metaRaw); err != nil {
		return k, fmt.Errorf("sqlite: scan knowledge: %w", err)
	}

	var err error
	if k.CreatedAt, err = parseTime(created); err != nil {
		return k, err
	}
	if k.UpdatedAt, err = parseTime(updated); err != nil {
		return k, err
	}
	if k.Metadata, err = unmarshalMeta(metaRaw); err != nil {
		return k, err
	}

	return k, nil
}
