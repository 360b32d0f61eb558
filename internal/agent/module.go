package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ctxengine "github.com/flemzord/engram/internal/context"
	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/provider"
	"github.com/flemzord/engram/internal/tool"
	"gopkg.in/yaml.v3"
)

const bootstrapTimeout = 10 * time.Second

func init() {
	core.RegisterModule(&Module{})
}

// Interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
)

// Module exposes the orchestrator as the "agent" module. It builds the
// tool registry at provision time and wires the orchestrator at start,
// after the memory and provider modules have registered their services.
type Module struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger
	tools  *tool.Registry
	orch   *Orchestrator
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "agent",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("agent: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	m.config = m.config.withDefaults()

	m.tools = tool.NewRegistry(tool.BuiltinConfig{WorkDir: ctx.WorkDir})
	ctx.RegisterService("tool.registry", m.tools)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.TurnWindow < 0 {
		return fmt.Errorf("agent: turn_window must not be negative")
	}
	if m.config.EntryWindow < 0 {
		return fmt.Errorf("agent: entry_window must not be negative")
	}
	return nil
}

// Start implements core.Starter. It runs after every module has
// provisioned, so the store and generator services are in place.
func (m *Module) Start() error {
	store, err := resolveStore(m.appCtx)
	if err != nil {
		return err
	}
	generator, err := resolveGenerator(m.appCtx)
	if err != nil {
		return err
	}

	assembler := ctxengine.NewAssembler(store, m.logger, ctxengine.Config{
		TurnWindow:  m.config.TurnWindow,
		EntryWindow: m.config.EntryWindow,
	})
	m.orch = NewOrchestrator(store, assembler, generator, m.tools, m.logger, m.config)
	m.appCtx.RegisterService("agent.orchestrator", m.orch)

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()
	if err := m.orch.Bootstrap(ctx); err != nil {
		m.logger.Warn("agent memory bootstrap failed", "error", err)
	}

	m.logger.Info("agent started",
		"name", m.config.Name,
		"model", generator.ModelName(),
		"tools", len(m.tools.Names()))
	return nil
}

// Orchestrator returns the wired orchestrator. Nil before Start.
func (m *Module) Orchestrator() *Orchestrator { return m.orch }

// Tools returns the tool registry built at provision time.
func (m *Module) Tools() *tool.Registry { return m.tools }

func resolveStore(ctx *core.AppContext) (memory.Store, error) {
	svc, ok := ctx.Service("memory.store")
	if !ok {
		return nil, fmt.Errorf("agent: no memory module loaded (missing service %q)", "memory.store")
	}
	store, ok := svc.(memory.Store)
	if !ok {
		return nil, fmt.Errorf("agent: service %q is %T, not a memory store", "memory.store", svc)
	}
	return store, nil
}

func resolveGenerator(ctx *core.AppContext) (provider.Generator, error) {
	svc, ok := ctx.Service("provider.generator")
	if !ok {
		return nil, fmt.Errorf("agent: no provider module loaded (missing service %q)", "provider.generator")
	}
	gen, ok := svc.(provider.Generator)
	if !ok {
		return nil, fmt.Errorf("agent: service %q is %T, not a generator", "provider.generator", svc)
	}
	return gen, nil
}
