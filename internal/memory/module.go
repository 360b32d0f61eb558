package memory

import "github.com/flemzord/engram/internal/core"

func init() {
	core.RegisterModule(&InMemoryModule{})
}

// Compile-time interface guard.
var _ core.Provisioner = (*InMemoryModule)(nil)

// InMemoryModule registers an InMemoryStore as the "memory.store"
// service. Nothing survives a restart; it suits ephemeral chat
// sessions and runs where no durable backend is configured yet.
type InMemoryModule struct{}

// ModuleInfo implements core.Module.
func (m *InMemoryModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.inmemory",
		New: func() core.Module { return &InMemoryModule{} },
	}
}

// Provision implements core.Provisioner.
func (m *InMemoryModule) Provision(ctx *core.AppContext) error {
	ctx.RegisterService("memory.store", NewInMemoryStore())
	ctx.Logger.Warn("using in-memory store, conversation history will not survive restarts")
	return nil
}
