package memory

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates the requested entry does not exist.
var ErrNotFound = errors.New("memory: entry not found")

// Entry is a durable key/value fact not tied to any single turn.
// Key is the sole identity; writing an existing key replaces the value
// and refreshes UpdatedAt while preserving CreatedAt.
type Entry struct {
	Key        string
	Value      json.RawMessage
	MemoryType string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Metadata   map[string]any
}

// Knowledge is a durable, confidence-scored fact supporting ranked
// search. Entries are append-only; topics may repeat. Confidence is a
// ranking signal clamped to [0,1] by the writer, not the store.
type Knowledge struct {
	ID         int64
	Topic      string
	Content    string
	Source     string
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Metadata   map[string]any
}

// Stats reports table sizes for status surfaces.
type Stats struct {
	Turns     int64
	Entries   int64
	Knowledge int64
}

// EntryStore manages key/value memory entries.
// Implementations must be safe for concurrent use.
type EntryStore interface {
	// UpsertEntry writes an entry under key. Idempotent under identical
	// input; concurrent upserts to the same key are last-write-wins.
	UpsertEntry(ctx context.Context, key string, value json.RawMessage, memoryType string, meta map[string]any) error

	// GetEntry returns the entry for key, or ErrNotFound.
	GetEntry(ctx context.Context, key string) (Entry, error)

	// SearchEntries returns up to limit entries whose key or value
	// contains query (case-insensitive substring), most recently
	// updated first. An empty memoryType matches all types.
	SearchEntries(ctx context.Context, query, memoryType string, limit int) ([]Entry, error)
}

// KnowledgeStore manages the append-only knowledge base.
// Implementations must be safe for concurrent use and must allocate
// strictly increasing IDs even under concurrent writers.
type KnowledgeStore interface {
	// AppendKnowledge records a knowledge entry and returns its ID.
	// Confidence is stored as given; range validation is the caller's job.
	AppendKnowledge(ctx context.Context, topic, content, source string, confidence float64, meta map[string]any) (int64, error)

	// SearchKnowledge returns up to limit entries whose topic or content
	// contains query (case-insensitive substring) with confidence >=
	// minConfidence, ordered by confidence descending then recency.
	SearchKnowledge(ctx context.Context, query string, minConfidence float64, limit int) ([]Knowledge, error)
}

// Store is the full persistence surface consumed by the orchestrator,
// the context assembler, and the gateway.
type Store interface {
	HistoryStore
	EntryStore
	KnowledgeStore

	// Stats returns current table counts.
	Stats(ctx context.Context) (Stats, error)
}
