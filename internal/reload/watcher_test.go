package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// assertStopReturns fails the test when w.Stop blocks.
func assertStopReturns(t *testing.T, w *Watcher) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.yaml")
	writeFile(t, path, "version: \"1\"")

	w := NewWatcher(WatcherConfig{ConfigPath: path, PollInterval: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// Give the poller a tick to record the starting fingerprint, then
	// rewrite with different content so the size changes even when the
	// filesystem's mtime granularity is coarse.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "version: \"1\"\nmodules: {}\n")

	select {
	case evt := <-w.Events():
		if evt.ConfigPath != path {
			t.Errorf("event path = %q, want %q", evt.ConfigPath, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after the file changed")
	}
}

func TestWatcher_NoEventForMissingFile(t *testing.T) {
	w := NewWatcher(WatcherConfig{
		ConfigPath:   filepath.Join(t.TempDir(), "never-written.yaml"),
		PollInterval: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	select {
	case evt := <-w.Events():
		t.Errorf("unexpected event: %+v", evt)
	case <-ctx.Done():
	}
}

func TestWatcher_StopNeverBlocks(t *testing.T) {
	tests := []struct {
		name string
		prep func(t *testing.T, w *Watcher)
	}{
		{
			name: "after start",
			prep: func(t *testing.T, w *Watcher) {
				w.Start(context.Background())
			},
		},
		{
			name: "after context cancel",
			prep: func(t *testing.T, w *Watcher) {
				ctx, cancel := context.WithCancel(context.Background())
				w.Start(ctx)
				cancel()
			},
		},
		{
			name: "before start",
			prep: func(t *testing.T, w *Watcher) {},
		},
		{
			name: "called twice",
			prep: func(t *testing.T, w *Watcher) {
				w.Start(context.Background())
				w.Stop()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "engram.yaml")
			writeFile(t, path, "version: \"1\"")

			w := NewWatcher(WatcherConfig{ConfigPath: path, PollInterval: 50 * time.Millisecond})
			tt.prep(t, w)
			assertStopReturns(t, w)
		})
	}
}
