package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/engram/internal/config"
	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
)

// storeWrapper is what the history cache module registers under
// "memory.cache": something that can layer itself over the durable
// store.
type storeWrapper interface {
	Wrap(inner memory.Store) memory.Store
}

// runState carries what a graph swap needs: the shared directories,
// the logger, and the currently running app.
type runState struct {
	logger    *slog.Logger
	cfgPath   string
	dataDir   string
	workspace string
	app       *core.App
	appCtx    *core.AppContext
}

// buildGraph builds a module graph from cfg: fresh AppContext, module
// load (configure, provision, validate), then cross-module store
// wiring. The returned app is ready to Start. On error nothing is left
// holding resources.
func (s *runState) buildGraph(cfg *config.Config) (*core.App, *core.AppContext, error) {
	appCtx := core.NewAppContext(s.logger, s.dataDir, s.workspace)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		return nil, nil, err
	}
	if err := wireStore(appCtx, s.logger); err != nil {
		application.Teardown()
		return nil, nil, err
	}
	return application, appCtx, nil
}

// swap replaces the running module graph with one built from cfg. The
// new graph is provisioned while the old one still runs, so a config
// that cannot build never takes the daemon down. Once the old graph is
// stopped, a failed start is errGraphDown and fatal.
func (s *runState) swap(_ context.Context, cfg *config.Config) error {
	next, nextCtx, err := s.buildGraph(cfg)
	if err != nil {
		return err
	}

	s.app.Stop()
	if err := next.Start(); err != nil {
		next.Teardown()
		return fmt.Errorf("%w: %w", errGraphDown, err)
	}
	s.app, s.appCtx = next, nextCtx
	s.logger.Info("module graph swapped")
	return nil
}

// wireStore layers the optional history cache over the durable store by
// re-registering "memory.store" with the wrapped one. Must run after
// LoadModules and before Start: by then every memory module has
// registered its services, and nothing has resolved the store yet.
func wireStore(appCtx *core.AppContext, logger *slog.Logger) error {
	cacheSvc, ok := appCtx.Service("memory.cache")
	if !ok {
		return nil
	}
	wrapper, ok := cacheSvc.(storeWrapper)
	if !ok {
		return fmt.Errorf(`app: service "memory.cache" is %T, not a store wrapper`, cacheSvc)
	}

	storeSvc, ok := appCtx.Service("memory.store")
	if !ok {
		return errors.New(`app: the history cache needs a durable store module (missing service "memory.store")`)
	}
	store, ok := storeSvc.(memory.Store)
	if !ok {
		return fmt.Errorf(`app: service "memory.store" is %T, not a memory.Store`, storeSvc)
	}

	appCtx.RegisterService("memory.store", wrapper.Wrap(store))
	logger.Info("history cache layered over the durable store")
	return nil
}
