package cron

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/engram/internal/memory"
)

// testPruner implements SessionPruner for job tests.
type testPruner struct {
	calls atomic.Int32
	fn    func(maxIdle time.Duration) int
}

func (p *testPruner) PruneSessions(maxIdle time.Duration) int {
	p.calls.Add(1)
	if p.fn != nil {
		return p.fn(maxIdle)
	}
	return 0
}

// failingStatsStore reports an error from Stats.
type failingStatsStore struct {
	memory.Store
}

func (failingStatsStore) Stats(context.Context) (memory.Stats, error) {
	return memory.Stats{}, errors.New("stats boom")
}

// failingHistory reports an error from DeleteTurnsBefore.
type failingHistory struct {
	memory.HistoryStore
}

func (failingHistory) DeleteTurnsBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("disk full")
}

func TestStatsLogJob_Name(t *testing.T) {
	t.Parallel()
	j := &StatsLogJob{Logger: slog.Default()}
	if j.Name() != "stats_log" {
		t.Errorf("name = %q, want %q", j.Name(), "stats_log")
	}
}

func TestStatsLogJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &StatsLogJob{Logger: slog.Default()}
	if j.Schedule() != "*/15 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "*/15 * * * *")
	}
	j.ScheduleExpr = "0 * * * *"
	if j.Schedule() != "0 * * * *" {
		t.Errorf("schedule = %q, want override", j.Schedule())
	}
}

func TestStatsLogJob_Run(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	if _, err := store.AppendTurn(context.Background(), "s1", "hi", "hello", "", nil); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	j := &StatsLogJob{Store: store, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatsLogJob_StoreError(t *testing.T) {
	t.Parallel()

	j := &StatsLogJob{Store: failingStatsStore{}, Logger: slog.Default()}
	err := j.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if !strings.Contains(err.Error(), "stats read") {
		t.Errorf("error = %v, want stats read wrap", err)
	}
}

func TestSessionPruneJob_Name(t *testing.T) {
	t.Parallel()
	j := &SessionPruneJob{Logger: slog.Default()}
	if j.Name() != "session_prune" {
		t.Errorf("name = %q, want %q", j.Name(), "session_prune")
	}
}

func TestSessionPruneJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &SessionPruneJob{Logger: slog.Default()}
	if j.Schedule() != "*/5 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "*/5 * * * *")
	}
}

func TestSessionPruneJob_Run(t *testing.T) {
	t.Parallel()

	pruner := &testPruner{
		fn: func(maxIdle time.Duration) int {
			if maxIdle != 30*time.Minute {
				t.Errorf("maxIdle = %v, want 30m", maxIdle)
			}
			return 3
		},
	}

	j := &SessionPruneJob{
		Sessions: pruner,
		MaxIdle:  30 * time.Minute,
		Logger:   slog.Default(),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pruner.calls.Load() != 1 {
		t.Errorf("prune calls = %d, want 1", pruner.calls.Load())
	}
}

func TestTurnRetentionJob_Name(t *testing.T) {
	t.Parallel()
	j := &TurnRetentionJob{Logger: slog.Default()}
	if j.Name() != "turn_retention" {
		t.Errorf("name = %q, want %q", j.Name(), "turn_retention")
	}
}

func TestTurnRetentionJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &TurnRetentionJob{Logger: slog.Default()}
	if j.Schedule() != "0 3 * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "0 3 * * *")
	}
}

func TestTurnRetentionJob_DeletesOldTurns(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	ctx := context.Background()
	for range 3 {
		if _, err := store.AppendTurn(ctx, "s1", "hi", "hello", "", nil); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	// A clock two days ahead puts every turn past a 1h retention window.
	j := &TurnRetentionJob{
		Store:  store,
		MaxAge: time.Hour,
		Logger: slog.Default(),
		now:    func() time.Time { return time.Now().Add(48 * time.Hour) },
	}
	if err := j.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Turns != 0 {
		t.Errorf("turns after retention = %d, want 0", stats.Turns)
	}
}

func TestTurnRetentionJob_KeepsRecentTurns(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	ctx := context.Background()
	if _, err := store.AppendTurn(ctx, "s1", "hi", "hello", "", nil); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	j := &TurnRetentionJob{
		Store:  store,
		MaxAge: 720 * time.Hour,
		Logger: slog.Default(),
	}
	if err := j.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Turns != 1 {
		t.Errorf("turns after retention = %d, want 1", stats.Turns)
	}
}

func TestTurnRetentionJob_StoreError(t *testing.T) {
	t.Parallel()

	j := &TurnRetentionJob{
		Store:  failingHistory{},
		MaxAge: time.Hour,
		Logger: slog.Default(),
	}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing store")
	}
}
