// Package postgres implements the PostgreSQL memory module backing
// conversation turns, key/value memory entries, and the knowledge base.
// It uses a jackc/pgx connection pool and creates its own schema on
// startup, so a plain DATABASE_URL is all the deployment needs.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ memory.Store      = (*store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module provides a PostgreSQL-backed memory.Store registered as the
// "memory.store" service.
type Module struct {
	config Config
	pool   *pgxpool.Pool
	logger *slog.Logger
	store  *store
}

// store implements memory.Store on top of a pgx pool.
type store struct {
	pool *pgxpool.Pool
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.postgres",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("postgres: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.URL == "" {
		m.config.URL = os.Getenv(databaseURLEnv)
	}
	if m.config.URL == "" {
		return fmt.Errorf("postgres: url is required (set url or %s)", databaseURLEnv)
	}

	poolCfg, err := pgxpool.ParseConfig(m.config.URL)
	if err != nil {
		return fmt.Errorf("postgres: parse url: %w", err)
	}
	if m.config.MaxConns > 0 {
		poolCfg.MaxConns = m.config.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("postgres: connect: %w", err)
	}

	if err := initSchema(connectCtx, pool); err != nil {
		pool.Close()
		return err
	}

	m.pool = pool
	m.store = &store{pool: pool}

	ctx.RegisterService("memory.store", m.store)

	m.logger.Info("postgres memory module provisioned",
		"max_conns", poolCfg.MaxConns,
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
	defer cancel()

	if err := m.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	var n int64
	if err := m.pool.QueryRow(ctx, "SELECT count(*) FROM turns").Scan(&n); err != nil {
		return fmt.Errorf("postgres: schema probe failed: %w", err)
	}

	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("postgres memory module stopping")
	if m.pool != nil {
		m.pool.Close()
	}
	return nil
}
