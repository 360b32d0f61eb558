package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// AppendKnowledge records a knowledge entry and returns its ID.
// Confidence is stored as given; clamping is the writer's job.
func (s *store) AppendKnowledge(ctx context.Context, topic, content, source string, confidence float64, meta map[string]any) (int64, error) {
	metaVal, err := metaArg(meta)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO knowledge (topic, content, source, confidence, created_at, updated_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		topic, content, source, confidence, now, now, metaVal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: append knowledge: %w", err)
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
	rows, err := s.pool.Query(ctx, `
		SELECT id, topic, content, source, confidence, created_at, updated_at, metadata
		FROM knowledge
		WHERE (topic ILIKE $1 OR content ILIKE $1) AND confidence >= $2
		ORDER BY confidence DESC, created_at DESC, id DESC
		LIMIT $3`,
		pattern, minConfidence, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: search knowledge: %w", err)
	}
	defer rows.Close()

	var results []memory.Knowledge
	for rows.Next() {
		var (
			k       memory.Knowledge
			metaRaw []byte
		)
		if err := rows.Scan(&k.ID, &k.Topic, &k.Content, &k.Source, &k.Confidence, &k.CreatedAt, &k.UpdatedAt, &metaRaw); err != nil {
			return nil, fmt.Errorf("postgres: scan knowledge: %w", err)
		}
		if k.Metadata, err = unmarshalMeta(metaRaw); err != nil {
			return nil, err
		}
		results = append(results, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search knowledge rows: %w", err)
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
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return memory.Stats{}, fmt.Errorf("postgres: stats: %w", err)
		}
	}
	return stats, nil
}
