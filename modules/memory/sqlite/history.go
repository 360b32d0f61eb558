package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// marshalMeta converts a metadata map to its stored form. A nil map is
// stored as SQL NULL so absent and empty metadata stay distinguishable.
func marshalMeta(meta map[string]any) (any, error) {
	if meta == nil {
		return nil, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marshal metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMeta(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw.String), &meta); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
	}
	return meta, nil
}

// AppendTurn records one turn and returns its store-assigned ID.
func (s *store) AppendTurn(ctx context.Context, sessionID, userInput, agentResponse, contextStr string, meta map[string]any) (int64, error) {
	metaVal, err := marshalMeta(meta)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, timestamp, user_input, agent_response, context, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, formatTime(time.Now()), userInput, agentResponse, contextStr, metaVal,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: append turn: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: turn id: %w", err)
	}
	return id, nil
}

// RecentTurns returns up to limit turns for a session, most recent first.
func (s *store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, user_input, agent_response, context, metadata
		FROM turns
		WHERE session_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []memory.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent turns rows: %w", err)
	}

	return turns, nil
}

// CountTurns returns the number of turns recorded for a session.
func (s *store) CountTurns(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM turns WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count turns: %w", err)
	}
	return count, nil
}

// DeleteTurnsBefore removes turns older than cutoff across all sessions.
func (s *store) DeleteTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM turns WHERE timestamp < ?", formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete turns: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete turns affected: %w", err)
	}
	return n, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(sc scanner) (memory.Turn, error) {
	var (
		turn    memory.Turn
		ts      string
		metaRaw sql.NullString
	)

	if err := sc.Scan(&turn.ID, &turn.SessionID, &ts, &turn.UserInput, &turn.AgentResponse, &turn.Context, &metaRaw); err != nil {
		return turn, fmt.Errorf("sqlite: scan turn: %w", err)
	}

	parsed, err := parseTime(ts)
	if err != nil {
		return turn, err
	}
	turn.Timestamp = parsed

	meta, err := unmarshalMeta(metaRaw)
	if err != nil {
		return turn, err
	}
	turn.Metadata = meta

	return turn, nil
}
