package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const stopTimeout = 30 * time.Second

// App owns a set of loaded modules and walks them through their
// lifecycle as one unit.
type App struct {
	ctx    *AppContext
	loaded []loadedModule
	logger *slog.Logger
}

type loadedModule struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp returns an App that loads modules through ctx.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, configures, and provisions the modules named
// by ids, in that order. The first failure tears down everything loaded
// so far and is returned.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.Teardown()
			return fmt.Errorf("load %s: %w", id, err)
		}
		a.loaded = append(a.loaded, loadedModule{id: mod.ModuleInfo().ID, module: mod})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// Start runs every loaded Starter in load order. When one fails, the
// modules already running are stopped again, newest first, and the
// failure is returned.
func (a *App) Start() error {
	for i := range a.loaded {
		m := &a.loaded[i]
		s, ok := m.module.(Starter)
		if !ok {
			continue
		}
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(m.id), "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("start %s: %w", m.id, err)
		}
		m.started = true
		a.logger.Info("module started", "module", string(m.id))
	}
	return nil
}

// Stop shuts down the running modules in reverse start order. Modules
// that never started are skipped.
func (a *App) Stop() {
	a.stopFrom(len(a.loaded) - 1)
}

func (a *App) stopFrom(i int) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for ; i >= 0; i-- {
		m := &a.loaded[i]
		if !m.started {
			continue
		}
		if s, ok := m.module.(Stopper); ok {
			a.logger.Info("stopping module", "module", string(m.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(m.id), "error", err)
			}
		}
		m.started = false
	}
}

// Teardown stops every loaded module, started or not, and forgets them.
// Failed LoadModules calls and discarded graphs come through here:
// provisioned modules may hold handles that Stop's started bookkeeping
// does not know about yet.
func (a *App) Teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(a.loaded) - 1; i >= 0; i-- {
		if s, ok := a.loaded[i].module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.loaded = nil
}
