// Package mcpserver exposes the agent's capabilities over the Model
// Context Protocol, so MCP clients (editors, other agents) can call
// the same tools the conversation loop uses and search the agent's
// durable memory. Transport is Streamable HTTP on a configurable
// listen address.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/tool"
	"github.com/flemzord/engram/internal/version"
	"github.com/mark3labs/mcp-go/server"
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

// Module serves the MCP endpoint. It is a leaf module, nothing
// imports it.
type Module struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger
	server *http.Server
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "mcp",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("mcp: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.appCtx = ctx
	m.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", m.config.Listen); err != nil {
		return fmt.Errorf("mcp: invalid listen address %q: %w", m.config.Listen, err)
	}
	return nil
}

// Start implements core.Starter. All module Provisions have completed
// by now, so the tool registry and store services are present.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service("tool.registry")
	if !ok {
		return errors.New(`mcp: no agent loaded (missing service "tool.registry")`)
	}
	registry, ok := svc.(*tool.Registry)
	if !ok {
		return fmt.Errorf(`mcp: service "tool.registry" is %T, not a tool registry`, svc)
	}

	svc, ok = m.appCtx.Service("memory.store")
	if !ok {
		return errors.New(`mcp: no memory module loaded (missing service "memory.store")`)
	}
	store, ok := svc.(memory.Store)
	if !ok {
		return fmt.Errorf(`mcp: service "memory.store" is %T, not a memory store`, svc)
	}

	mcpServer := server.NewMCPServer(
		"engram",
		version.String(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	for _, reg := range registry.List() {
		mcpServer.AddTool(registryTool(reg), registryToolHandler(registry, reg.Name))
	}
	mcpServer.AddTool(memorySearchTool(), memorySearchHandler(store))

	m.server = &http.Server{
		Addr:    m.config.Listen,
		Handler: server.NewStreamableHTTPServer(mcpServer),
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", m.config.Listen)
	if err != nil {
		return fmt.Errorf("mcp: listen on %s: %w", m.config.Listen, err)
	}

	go func() {
		m.logger.Info("mcp server listening", "addr", m.config.Listen, "tools", len(registry.Names())+1)
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("mcp serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	m.logger.Info("mcp server shutting down")
	return m.server.Shutdown(ctx)
}

const serverInstructions = `Engram is a conversational agent with durable memory.
The tools mirror the agent's own capability set; call them with a single
argument string. Use memory_search to look up facts the agent has stored
across sessions.`
