package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// AppendTurn records one turn and returns its store-assigned ID.
func (s *store) AppendTurn(ctx context.Context, sessionID, userInput, agentResponse, contextStr string, meta map[string]any) (int64, error) {
	metaVal, err := metaArg(meta)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO turns (session_id, timestamp, user_input, agent_response, context, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		sessionID, time.Now().UTC(), userInput, agentResponse, contextStr, metaVal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: append turn: %w", err)
	}
	return id, nil
}

// RecentTurns returns up to limit turns for a session, most recent first.
func (s *store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, timestamp, user_input, agent_response, context, metadata
		FROM turns
		WHERE session_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent turns: %w", err)
	}
	defer rows.Close()

	var turns []memory.Turn
	for rows.Next() {
		var (
			turn    memory.Turn
			metaRaw []byte
		)
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Timestamp, &turn.UserInput, &turn.AgentResponse, &turn.Context, &metaRaw); err != nil {
			return nil, fmt.Errorf("postgres: scan turn: %w", err)
		}
		if turn.Metadata, err = unmarshalMeta(metaRaw); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: recent turns rows: %w", err)
	}

	return turns, nil
}

// CountTurns returns the number of turns recorded for a session.
func (s *store) CountTurns(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM turns WHERE session_id = $1", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count turns: %w", err)
	}
	return count, nil
}

// DeleteTurnsBefore removes turns older than cutoff across all sessions.
func (s *store) DeleteTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM turns WHERE timestamp < $1", cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete turns: %w", err)
	}
	return tag.RowsAffected(), nil
}
