// Package sqlite implements the persistent memory module backing
// conversation turns, key/value memory entries, and the knowledge base.
// It uses modernc.org/sqlite (pure Go, no CGO) with WAL mode and a
// single write connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/memory"
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

// Module provides a SQLite-backed memory.Store registered as the
// "memory.store" service.
type Module struct {
	config Config
	db     *sql.DB
	logger *slog.Logger
	store  *store
}

// store implements memory.Store over a single SQLite database.
type store struct {
	db *sql.DB
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	return m.config.check()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.fill()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := openDB(m.config.Path, m.config.walEnabled(), m.config.BusyTimeout)
	if err != nil {
		return err
	}

	m.db = db
	m.store = &store{db: db}
	ctx.RegisterService("memory.store", m.store)

	m.logger.Info("sqlite store ready",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}

	// The turns table exists once migration ran.
	var n int
	if err := m.db.QueryRowContext(context.TODO(), "SELECT count(*) FROM turns").Scan(&n); err != nil {
		return fmt.Errorf("sqlite: schema probe failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("closing sqlite store")
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
