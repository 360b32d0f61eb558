package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
	robcron "github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config selects which maintenance jobs run and when. Stats logging
// and session pruning are on unless disabled; turn retention deletes
// history and stays off unless enabled.
type Config struct {
	StatsLog      StatsLogConfig      `yaml:"stats_log"`
	SessionPrune  SessionPruneConfig  `yaml:"session_prune"`
	TurnRetention TurnRetentionConfig `yaml:"turn_retention"`
}

// StatsLogConfig controls the periodic store stats log line.
type StatsLogConfig struct {
	Disabled bool   `yaml:"disabled"`
	Schedule string `yaml:"schedule"` // empty = "*/15 * * * *"
}

// SessionPruneConfig controls eviction of idle in-process sessions.
type SessionPruneConfig struct {
	Disabled bool          `yaml:"disabled"`
	Schedule string        `yaml:"schedule"` // empty = "*/5 * * * *"
	MaxIdle  time.Duration `yaml:"max_idle"` // zero = 30m
}

// TurnRetentionConfig controls deletion of old turns across sessions.
type TurnRetentionConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"` // empty = "0 3 * * *"
	MaxAge   time.Duration `yaml:"max_age"`  // zero = 720h
}

func (c Config) withDefaults() Config {
	if c.SessionPrune.MaxIdle == 0 {
		c.SessionPrune.MaxIdle = 30 * time.Minute
	}
	if c.TurnRetention.MaxAge == 0 {
		c.TurnRetention.MaxAge = 720 * time.Hour
	}
	return c
}

// Module runs the maintenance scheduler as the "cron" module. Jobs are
// wired at start, after the memory and agent modules have registered
// their services.
type Module struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("cron: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	m.config = m.config.withDefaults()
	m.scheduler = NewScheduler(m.logger)
	return nil
}

// Validate implements core.Validator. Schedules are parsed here so a
// typo fails at load time instead of at start.
func (m *Module) Validate() error {
	for name, expr := range map[string]string{
		"stats_log":      m.config.StatsLog.Schedule,
		"session_prune":  m.config.SessionPrune.Schedule,
		"turn_retention": m.config.TurnRetention.Schedule,
	} {
		if err := validSchedule(expr); err != nil {
			return fmt.Errorf("cron: invalid %s schedule %q: %w", name, expr, err)
		}
	}
	if m.config.SessionPrune.MaxIdle < 0 {
		return fmt.Errorf("cron: session_prune max_idle must not be negative")
	}
	if m.config.TurnRetention.Enabled && m.config.TurnRetention.MaxAge <= 0 {
		return fmt.Errorf("cron: turn_retention max_age must be positive")
	}
	return nil
}

// Start implements core.Starter. It runs after every module has
// started its dependencies, so the store and orchestrator services
// are in place.
func (m *Module) Start() error {
	if !m.config.StatsLog.Disabled {
		store, err := m.resolveStore()
		if err != nil {
			return err
		}
		if err := m.scheduler.RegisterJob(&StatsLogJob{
			Store:        store,
			Logger:       m.logger,
			ScheduleExpr: m.config.StatsLog.Schedule,
		}); err != nil {
			return err
		}
	}

	if !m.config.SessionPrune.Disabled {
		pruner, err := m.resolvePruner()
		if err != nil {
			return err
		}
		if err := m.scheduler.RegisterJob(&SessionPruneJob{
			Sessions:     pruner,
			MaxIdle:      m.config.SessionPrune.MaxIdle,
			Logger:       m.logger,
			ScheduleExpr: m.config.SessionPrune.Schedule,
		}); err != nil {
			return err
		}
	}

	if m.config.TurnRetention.Enabled {
		store, err := m.resolveStore()
		if err != nil {
			return err
		}
		if err := m.scheduler.RegisterJob(&TurnRetentionJob{
			Store:        store,
			MaxAge:       m.config.TurnRetention.MaxAge,
			Logger:       m.logger,
			ScheduleExpr: m.config.TurnRetention.Schedule,
		}); err != nil {
			return err
		}
	}

	if m.scheduler.JobCount() == 0 {
		m.logger.Info("cron: no jobs enabled")
		return nil
	}
	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

func (m *Module) resolveStore() (memory.Store, error) {
	svc, ok := m.appCtx.Service("memory.store")
	if !ok {
		return nil, fmt.Errorf("cron: no memory module loaded (missing service %q)", "memory.store")
	}
	store, ok := svc.(memory.Store)
	if !ok {
		return nil, fmt.Errorf("cron: service %q is %T, not a memory store", "memory.store", svc)
	}
	return store, nil
}

func (m *Module) resolvePruner() (SessionPruner, error) {
	svc, ok := m.appCtx.Service("agent.orchestrator")
	if !ok {
		return nil, fmt.Errorf("cron: no agent module loaded (missing service %q)", "agent.orchestrator")
	}
	pruner, ok := svc.(SessionPruner)
	if !ok {
		return nil, fmt.Errorf("cron: service %q is %T, not a session pruner", "agent.orchestrator", svc)
	}
	return pruner, nil
}

func validSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	parser := robcron.NewParser(robcron.Minute | robcron.Hour | robcron.Dom | robcron.Month | robcron.Dow)
	_, err := parser.Parse(expr)
	return err
}
