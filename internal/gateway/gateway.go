// Package gateway exposes the agent over HTTP: a JSON API for chat,
// history, knowledge, and tool execution, a WebSocket chat endpoint,
// Prometheus metrics, and health endpoints. It binds to loopback by
// default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/flemzord/engram/internal/agent"
	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/tool"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module, nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	startedAt time.Time

	// Resolved at Start() via the service registry.
	orch  *agent.Orchestrator
	tools *tool.Registry
	store memory.Store

	// Active chat sockets. Shutdown does not wait for hijacked
	// connections, so Stop closes these explicitly.
	wsMu    sync.Mutex
	wsConns map[*websocket.Conn]struct{}
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = NewMetrics("engram")
	g.wsConns = make(map[*websocket.Conn]struct{})

	ctx.RegisterService("gateway.metrics", g.metrics)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	return nil
}

// Start implements core.Starter. It resolves the orchestrator, tool
// registry, and store from the service registry and starts the HTTP
// server. All module Provisions have completed by now, so the services
// are present whenever their modules are loaded.
func (g *Gateway) Start() error {
	svc, ok := g.appCtx.Service("agent.orchestrator")
	if !ok {
		return errors.New(`gateway: no agent loaded (missing service "agent.orchestrator")`)
	}
	orch, ok := svc.(*agent.Orchestrator)
	if !ok {
		return fmt.Errorf(`gateway: service "agent.orchestrator" is %T, not an orchestrator`, svc)
	}
	g.orch = orch

	if svc, ok := g.appCtx.Service("tool.registry"); ok {
		if reg, ok := svc.(*tool.Registry); ok {
			g.tools = reg
		}
	}
	if svc, ok := g.appCtx.Service("memory.store"); ok {
		if store, ok := svc.(memory.Store); ok {
			g.store = store
		}
	}

	if g.store != nil {
		g.metrics.ObserveStore(g.store)
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Bind, err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind, "auth", g.config.Auth.IsConfigured())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	g.closeChatSockets()
	return g.server.Shutdown(shutdownCtx)
}

func (g *Gateway) trackChatSocket(conn *websocket.Conn) {
	g.wsMu.Lock()
	g.wsConns[conn] = struct{}{}
	g.wsMu.Unlock()
}

func (g *Gateway) untrackChatSocket(conn *websocket.Conn) {
	g.wsMu.Lock()
	delete(g.wsConns, conn)
	g.wsMu.Unlock()
}

func (g *Gateway) closeChatSockets() {
	g.wsMu.Lock()
	defer g.wsMu.Unlock()
	for conn := range g.wsConns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	clear(g.wsConns)
}
