package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe, in-memory implementation of Store.
// It backs tests and the memory.inmemory module; durability is out of
// scope.
type InMemoryStore struct {
	mu        sync.RWMutex
	turns     []Turn
	entries   map[string]Entry
	knowledge []Knowledge

	lastTurnID      int64
	lastKnowledgeID int64

	now func() time.Time // injectable for tests
}

// NewInMemoryStore creates a new empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

// AppendTurn records one turn and returns its ID.
func (s *InMemoryStore) AppendTurn(_ context.Context, sessionID, userInput, agentResponse, contextStr string, meta map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTurnID++
	s.turns = append(s.turns, Turn{
		ID:            s.lastTurnID,
		SessionID:     sessionID,
		Timestamp:     s.now().UTC(),
		UserInput:     userInput,
		AgentResponse: agentResponse,
		Context:       contextStr,
		Metadata:      meta,
	})
	return s.lastTurnID, nil
}

// RecentTurns returns up to limit turns for a session, most recent first.
func (s *InMemoryStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}

	var results []Turn
	for i := range s.turns {
		if s.turns[i].SessionID == sessionID {
			results = append(results, s.turns[i])
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID > results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountTurns returns the number of turns recorded for a session.
func (s *InMemoryStore) CountTurns(_ context.Context, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.turns {
		if s.turns[i].SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// DeleteTurnsBefore removes turns older than cutoff.
func (s *InMemoryStore) DeleteTurnsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.turns[:0]
	var removed int64
	for i := range s.turns {
		if s.turns[i].Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s.turns[i])
	}
	s.turns = kept
	return removed, nil
}

// UpsertEntry writes an entry under key, preserving CreatedAt on update.
func (s *InMemoryStore) UpsertEntry(_ context.Context, key string, value json.RawMessage, memoryType string, meta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if memoryType == "" {
		memoryType = "general"
	}

	now := s.now().UTC()
	created := now
	if existing, ok := s.entries[key]; ok {
		created = existing.CreatedAt
	}
	s.entries[key] = Entry{
		Key:        key,
		Value:      value,
		MemoryType: memoryType,
		CreatedAt:  created,
		UpdatedAt:  now,
		Metadata:   meta,
	}
	return nil
}

// GetEntry returns the entry for key, or ErrNotFound.
func (s *InMemoryStore) GetEntry(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// SearchEntries returns entries matching query by case-insensitive
// substring over key and value, most recently updated first.
func (s *InMemoryStore) SearchEntries(_ context.Context, query, memoryType string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}

	q := strings.ToLower(query)
	var results []Entry
	for _, e := range s.entries {
		if memoryType != "" && e.MemoryType != memoryType {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Key), q) &&
			!strings.Contains(strings.ToLower(string(e.Value)), q) {
			continue
		}
		results = append(results, e)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].UpdatedAt.Equal(results[j].UpdatedAt) {
			return results[i].UpdatedAt.After(results[j].UpdatedAt)
		}
		return results[i].Key < results[j].Key
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AppendKnowledge records a knowledge entry and returns its ID.
func (s *InMemoryStore) AppendKnowledge(_ context.Context, topic, content, source string, confidence float64, meta map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastKnowledgeID++
	now := s.now().UTC()
	s.knowledge = append(s.knowledge, Knowledge{
		ID:         s.lastKnowledgeID,
		Topic:      topic,
		Content:    content,
		Source:     source,
		Confidence: confidence,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   meta,
	})
	return s.lastKnowledgeID, nil
}

// SearchKnowledge returns matching entries ordered by confidence
// descending, then creation time descending, then ID descending.
func (s *InMemoryStore) SearchKnowledge(_ context.Context, query string, minConfidence float64, limit int) ([]Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}

	q := strings.ToLower(query)
	var results []Knowledge
	for i := range s.knowledge {
		k := s.knowledge[i]
		if k.Confidence < minConfidence {
			continue
		}
		if !strings.Contains(strings.ToLower(k.Topic), q) &&
			!strings.Contains(strings.ToLower(k.Content), q) {
			continue
		}
		results = append(results, k)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Stats returns current table counts.
func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Turns:     int64(len(s.turns)),
		Entries:   int64(len(s.entries)),
		Knowledge: int64(len(s.knowledge)),
	}, nil
}
