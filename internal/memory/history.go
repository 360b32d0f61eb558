// Package memory defines the durable storage model for conversation
// turns, key/value memory entries, and confidence-scored knowledge,
// together with an in-memory reference implementation.
package memory

import (
	"context"
	"time"
)

// Turn is a single user-input/agent-response exchange within a session.
// A turn is immutable once written; error turns carry the user-visible
// error text in AgentResponse and Metadata["error"] = true.
type Turn struct {
	ID            int64
	SessionID     string
	Timestamp     time.Time
	UserInput     string
	AgentResponse string
	Context       string
	Metadata      map[string]any
}

// HistoryStore manages per-session conversation turns.
// Implementations must be safe for concurrent use and must allocate
// strictly increasing turn IDs even under concurrent writers.
type HistoryStore interface {
	// AppendTurn durably records one turn and returns its store-assigned ID.
	// The (userInput, agentResponse) pair is committed atomically.
	AppendTurn(ctx context.Context, sessionID, userInput, agentResponse, contextStr string, meta map[string]any) (int64, error)

	// RecentTurns returns up to limit turns for a session, most recent
	// first, ordered by timestamp with ID as the tie-break.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// CountTurns returns how many turns have been recorded for a session.
	CountTurns(ctx context.Context, sessionID string) (int64, error)

	// DeleteTurnsBefore removes turns older than cutoff across all
	// sessions and returns the number removed.
	DeleteTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
