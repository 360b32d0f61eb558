// Package core is engram's module system: a registry of named modules,
// the lifecycle that loads them from configuration, and the AppContext
// through which they share services.
package core

import (
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppContext carries what a module gets to see while it loads and runs.
type AppContext struct {
	// Logger for the current module scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent module data.
	DataDir string

	// WorkDir is the working directory file tools operate under.
	WorkDir string

	baseLogger    *slog.Logger
	moduleConfigs map[string]yaml.Node
	services      *serviceTable
}

// serviceTable is shared between every scope of one AppContext, so a
// service registered by one module is visible to all the others.
type serviceTable struct {
	mu     sync.RWMutex
	byName map[string]any
}

// NewAppContext builds the root context modules are loaded under. A nil
// logger falls back to slog.Default.
func NewAppContext(logger *slog.Logger, dataDir, workDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:     logger,
		DataDir:    dataDir,
		WorkDir:    workDir,
		baseLogger: logger,
		services:   &serviceTable{byName: make(map[string]any)},
	}
}

// RegisterService publishes svc under name for other modules to look
// up. Registering the same name again replaces the earlier value.
func (ctx *AppContext) RegisterService(name string, svc any) {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.byName[name] = svc
}

// Service returns the value registered under name.
func (ctx *AppContext) Service(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	svc, ok := ctx.services.byName[name]
	return svc, ok
}

// WithModuleConfigs returns a copy of the context carrying each
// module's raw YAML section, keyed by module ID.
func (ctx *AppContext) WithModuleConfigs(configs map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.moduleConfigs = configs
	return &cp
}

// ForModule scopes the context to one module: the logger is tagged with
// the module ID while the service table stays shared.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	return &AppContext{
		Logger:        ctx.baseLogger.With("module", string(id)),
		DataDir:       ctx.DataDir,
		WorkDir:       ctx.WorkDir,
		baseLogger:    ctx.baseLogger,
		moduleConfigs: ctx.moduleConfigs,
		services:      ctx.services,
	}
}

// LoadModule runs one module through its load sequence,
//
//	New, Configure, Provision, Validate,
//
// skipping the phases the module does not implement. Configure also
// runs only when the config has a section for the module.
func (ctx *AppContext) LoadModule(id string) (Module, error) {
	info, ok := GetModule(id)
	if !ok {
		return nil, fmt.Errorf("core: unknown module %q", id)
	}

	mod := info.New()

	if c, ok := mod.(Configurable); ok {
		if node, exists := ctx.moduleConfigs[id]; exists {
			if err := c.Configure(&node); err != nil {
				return nil, fmt.Errorf("configure %s: %w", id, err)
			}
		}
	}

	if p, ok := mod.(Provisioner); ok {
		if err := p.Provision(ctx.ForModule(info.ID)); err != nil {
			return nil, fmt.Errorf("provision %s: %w", id, err)
		}
	}

	if v, ok := mod.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", id, err)
		}
	}

	return mod, nil
}
