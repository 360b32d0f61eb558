package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/flemzord/engram/internal/memory"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface guard.
var _ memory.Store = (*cachedStore)(nil)

// cachedStore caches RecentTurns results per session. Entry, knowledge
// and stats calls pass straight through to the durable store.
type cachedStore struct {
	memory.Store

	client *redis.Client
	ttl    time.Duration
	window int
	logger *slog.Logger
}

func historyKey(sessionID string) string {
	return "history:" + sessionID
}

// RecentTurns serves reads within the cache window from Redis,
// filling from the durable store on a miss. Requests larger than the
// window bypass the cache entirely, and any Redis failure degrades to
// a direct read.
func (c *cachedStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > c.window {
		return c.Store.RecentTurns(ctx, sessionID, limit)
	}

	key := historyKey(sessionID)
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var turns []memory.Turn
		if err := json.Unmarshal([]byte(raw), &turns); err != nil {
			c.logger.Warn("redis cache: corrupt history entry, evicting", "session_id", sessionID, "error", err)
			c.client.Del(ctx, key)
		} else {
			if len(turns) > limit {
				turns = turns[:limit]
			}
			return turns, nil
		}
	case errors.Is(err, redis.Nil):
		// Miss; fill below.
	default:
		c.logger.Warn("redis cache: read failed, falling back to store", "session_id", sessionID, "error", err)
		return c.Store.RecentTurns(ctx, sessionID, limit)
	}

	turns, err := c.Store.RecentTurns(ctx, sessionID, c.window)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(turns); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("redis cache: fill failed", "session_id", sessionID, "error", err)
		}
	}

	if len(turns) > limit {
		turns = turns[:limit]
	}
	return turns, nil
}

// AppendTurn writes through to the durable store, then invalidates the
// session's cached slice so the next read refills it.
func (c *cachedStore) AppendTurn(ctx context.Context, sessionID, userInput, agentResponse, contextStr string, meta map[string]any) (int64, error) {
	id, err := c.Store.AppendTurn(ctx, sessionID, userInput, agentResponse, contextStr, meta)
	if err != nil {
		return 0, err
	}

	if err := c.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		c.logger.Warn("redis cache: invalidate failed", "session_id", sessionID, "error", err)
	}
	return id, nil
}

// DeleteTurnsBefore removes turns from the durable store, then drops
// every cached history slice since any session may be affected.
func (c *cachedStore) DeleteTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := c.Store.DeleteTurnsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	iter := c.client.Scan(ctx, 0, historyKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis cache: sweep failed", "error", err)
	}
	return n, nil
}
