// Package app assembles and runs the engram daemon: it loads the YAML
// configuration, builds the module graph, wires cross-module services,
// and keeps the graph running until shutdown, swapping it in place on
// configuration reloads.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/flemzord/engram/internal/config"
	"github.com/flemzord/engram/internal/reload"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called.
	ConfigPath string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// Workspace overrides the default working directory file tools
	// operate under.
	Workspace string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// errGraphDown marks a reload that stopped the old module graph and
// then failed to start the new one. It is fatal: Run exits so a
// supervisor can restart the daemon into a known state.
var errGraphDown = errors.New("app: module graph down after reload")

// Run loads configuration, starts all modules, and blocks until a
// shutdown signal arrives. SIGHUP and config file changes trigger a
// graph swap: the new config is loaded, validated, and provisioned
// while the old graph still runs, then the old graph is stopped and
// the new one started. An invalid new config is logged and ignored.
func Run(params RunParams) error {
	state, err := boot(params)
	if err != nil {
		return err
	}
	logger := state.logger

	handler := reload.NewHandler(state.swap, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watcher := reload.NewWatcher(reload.WatcherConfig{ConfigPath: state.cfgPath})
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	watcher.Start(watchCtx)
	defer watcher.Stop()

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading configuration")
				if err := state.reload(watchCtx, handler); err != nil {
					return err
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
			state.app.Stop()
			logger.Info("shutdown complete")
			return nil

		case <-watcher.Events():
			logger.Info("config file changed, reloading", "path", state.cfgPath)
			if err := state.reload(watchCtx, handler); err != nil {
				return err
			}
		}
	}
}

// boot loads and validates the configuration, builds the module graph,
// and starts it. On success the returned state owns a running app.
func boot(params RunParams) (*runState, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	}))

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	workspace := params.Workspace
	if workspace == "" {
		workspace = DefaultWorkspace()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: creating data dir: %w", err)
	}

	state := &runState{
		logger:    logger,
		cfgPath:   cfgPath,
		dataDir:   dataDir,
		workspace: workspace,
	}

	application, appCtx, err := state.buildGraph(cfg)
	if err != nil {
		return nil, err
	}
	if err := application.Start(); err != nil {
		application.Teardown()
		return nil, err
	}
	state.app = application
	state.appCtx = appCtx
	return state, nil
}

// reload runs one reload attempt. A rejected config keeps the current
// graph and is not an error; losing the graph mid-swap is.
func (s *runState) reload(ctx context.Context, handler *reload.Handler) error {
	err := handler.HandleReload(ctx, s.cfgPath)
	if err == nil {
		return nil
	}
	if errors.Is(err, errGraphDown) {
		return err
	}
	s.logger.Error("reload failed, keeping current configuration", "error", err)
	return nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/engram/engram.yaml,
// ~/.config/engram/engram.yaml, ./engram.yaml.
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "engram", "engram.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "engram", "engram.yaml"))
	}

	candidates = append(candidates, "engram.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory:
// $XDG_DATA_HOME/engram if set, otherwise ~/.local/share/engram.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "engram")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "engram")
}

// DefaultWorkspace returns the current working directory.
func DefaultWorkspace() string {
	dir, _ := os.Getwd()
	return dir
}
