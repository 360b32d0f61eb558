// Package reload provides configuration hot-reload: a polling file
// watcher that notices config changes, and a handler that validates
// the new config and swaps the module graph through the app.
package reload

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the file to watch.
	ConfigPath string

	// PollInterval is the time between stat calls. Zero means 5s.
	PollInterval time.Duration
}

// Event signals that the watched config file changed.
type Event struct {
	ConfigPath string
}

// fingerprint is what one stat of the file reveals. Two fingerprints
// differing in any field count as a change; comparing only mtime would
// miss a same-second rewrite on filesystems with coarse timestamps.
type fingerprint struct {
	modTime time.Time
	size    int64
	exists  bool
}

// Watcher polls a configuration file and emits an Event when it
// changes.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a watcher for cfg.ConfigPath. Nothing happens
// until Start.
func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the polling goroutine. Extra calls are no-ops.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Events returns the change notification channel. It holds at most one
// pending event; further changes coalesce into it.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop ends polling. Safe to call more than once and before Start.
//
// When Stop races with Start (startOnce already ran but the goroutine
// has not been scheduled yet), the wait on stopped holds Stop until
// the goroutine observes the closed stop channel and exits.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	last := w.stat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			current := w.stat()
			if !current.exists {
				// Editors replace files non-atomically; wait for the
				// new file to land instead of reporting the gap.
				continue
			}
			if current != last {
				last = current
				select {
				case w.events <- Event{ConfigPath: w.cfg.ConfigPath}:
				default:
					// A reload is already pending.
				}
			}
		}
	}
}

func (w *Watcher) stat() fingerprint {
	info, err := os.Stat(w.cfg.ConfigPath)
	if err != nil {
		return fingerprint{}
	}
	return fingerprint{modTime: info.ModTime(), size: info.Size(), exists: true}
}
