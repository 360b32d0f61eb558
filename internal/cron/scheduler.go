package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// jobEntry pairs a job with its in-flight flag.
type jobEntry struct {
	job  Job
	busy atomic.Bool
}

// Scheduler runs registered jobs on their cron expressions. A tick that
// fires while the previous run of the same job is still in flight is
// skipped, not queued.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries []*jobEntry
	byName  map[string]*jobEntry
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewScheduler creates an empty scheduler. Register jobs before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		byName: make(map[string]*jobEntry),
		logger: logger,
	}
}

// RegisterJob adds a job under its name. Names are unique; registering
// a taken name is an error.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, taken := s.byName[name]; taken {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	e := &jobEntry{job: j}
	s.byName[name] = e
	s.entries = append(s.entries, e)
	return nil
}

// JobCount reports how many jobs are registered.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start parses every schedule and begins ticking. An invalid expression
// fails the whole start.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, e := range s.entries {
		_, err := s.cron.AddFunc(e.job.Schedule(), func() {
			s.tick(ctx, e)
		})
		if err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", e.job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.entries))
	return nil
}

func (s *Scheduler) tick(ctx context.Context, e *jobEntry) {
	if !e.busy.CompareAndSwap(false, true) {
		s.logger.Warn("cron: previous run still in flight, tick skipped", "job", e.job.Name())
		return
	}
	defer e.busy.Store(false)

	s.logger.Debug("cron: job started", "job", e.job.Name())
	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", e.job.Name(), "error", err)
		return
	}
	s.logger.Debug("cron: job finished", "job", e.job.Name())
}

// Stop cancels the job context and waits for in-flight runs, up to the
// caller's deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		select {
		case <-s.cron.Stop().Done():
			s.logger.Info("cron: scheduler stopped")
		case <-ctx.Done():
			return fmt.Errorf("cron: stop: %w", ctx.Err())
		}
	}
	return nil
}
