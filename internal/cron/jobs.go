package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// SessionPruner is the subset of the orchestrator needed by the prune
// job. Defined here to avoid a dependency on the agent package.
type SessionPruner interface {
	PruneSessions(maxIdle time.Duration) int
}

// StatsLogJob periodically logs store table counts so operators can
// watch growth without scraping metrics.
type StatsLogJob struct {
	Store        memory.Store
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*StatsLogJob)(nil)

// Name implements Job.
func (j *StatsLogJob) Name() string { return "stats_log" }

// Schedule implements Job.
func (j *StatsLogJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run reads store counts and logs them at info level.
func (j *StatsLogJob) Run(ctx context.Context) error {
	stats, err := j.Store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("cron: stats read: %w", err)
	}
	j.Logger.Info("cron: store stats",
		"turns", stats.Turns,
		"entries", stats.Entries,
		"knowledge", stats.Knowledge,
	)
	return nil
}

// SessionPruneJob drops in-process sessions idle longer than MaxIdle.
// Persisted history is untouched; a pruned session resumes with its
// counter restored on its next turn.
type SessionPruneJob struct {
	Sessions     SessionPruner
	MaxIdle      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*SessionPruneJob)(nil)

// Name implements Job.
func (j *SessionPruneJob) Name() string { return "session_prune" }

// Schedule implements Job.
func (j *SessionPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run prunes sessions idle longer than MaxIdle.
func (j *SessionPruneJob) Run(_ context.Context) error {
	pruned := j.Sessions.PruneSessions(j.MaxIdle)
	if pruned > 0 {
		j.Logger.Info("cron: pruned idle sessions", "count", pruned)
	}
	return nil
}

// TurnRetentionJob deletes turns older than MaxAge across all sessions.
// Disabled unless the operator opts in; conversation history is kept
// forever by default.
type TurnRetentionJob struct {
	Store        memory.HistoryStore
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 3 * * *"

	now func() time.Time // test hook, defaults to time.Now
}

// Compile-time interface check.
var _ Job = (*TurnRetentionJob)(nil)

// Name implements Job.
func (j *TurnRetentionJob) Name() string { return "turn_retention" }

// Schedule implements Job.
func (j *TurnRetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 3 * * *"
}

// Run deletes turns whose timestamp is older than now minus MaxAge.
func (j *TurnRetentionJob) Run(ctx context.Context) error {
	nowFn := j.now
	if nowFn == nil {
		nowFn = time.Now
	}
	cutoff := nowFn().Add(-j.MaxAge)

	deleted, err := j.Store.DeleteTurnsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: turn retention: %w", err)
	}
	if deleted > 0 {
		j.Logger.Info("cron: deleted old turns", "count", deleted, "cutoff", cutoff)
	}
	return nil
}
