// Package rediscache implements an optional read-through cache for
// recent conversation turns, layered over whichever durable memory
// module is loaded. Cached history lives under history:<session_id>
// keys with a TTL. The cache is never a source of truth: every write
// goes to the durable store first, and any Redis failure falls back to
// a direct read.
package rediscache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

const pingTimeout = 5 * time.Second

// Module provides the history cache. It registers itself as the
// "memory.cache" service; the app wraps the durable "memory.store"
// through Wrap after all modules have provisioned.
type Module struct {
	config Config
	client *redis.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.redis_cache",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("redis_cache: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.URL == "" {
		m.config.URL = os.Getenv(redisURLEnv)
	}
	if m.config.URL == "" {
		return fmt.Errorf("redis_cache: url is required (set url or %s)", redisURLEnv)
	}

	opts, err := redis.ParseURL(m.config.URL)
	if err != nil {
		return fmt.Errorf("redis_cache: parse url: %w", err)
	}
	m.client = redis.NewClient(opts)

	ctx.RegisterService("memory.cache", m)

	m.logger.Info("redis cache module provisioned",
		"ttl", m.config.TTL,
		"window", m.config.Window,
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis_cache: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("redis cache module stopping")
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Wrap layers the cache over the durable store. The app calls this
// after every module has provisioned and before any starts, so the
// orchestrator and gateway resolve the cached store.
func (m *Module) Wrap(inner memory.Store) memory.Store {
	return &cachedStore{
		Store:  inner,
		client: m.client,
		ttl:    m.config.TTL,
		window: m.config.Window,
		logger: m.logger,
	}
}
