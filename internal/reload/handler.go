package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/engram/internal/config"
)

// SwapFunc applies a validated configuration to the running app,
// typically by stopping the current module graph and starting a fresh
// one built from cfg. A SwapFunc that fails before its stop point must
// leave the current graph running.
type SwapFunc func(ctx context.Context, cfg *config.Config) error

// Handler turns reload triggers (SIGHUP, config file change) into
// config swaps. Reloads are serialized: a trigger arriving mid-swap
// waits for the running one.
type Handler struct {
	mu     sync.Mutex
	swap   SwapFunc
	logger *slog.Logger
}

// NewHandler creates a reload handler around a swap function.
func NewHandler(swap SwapFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{swap: swap, logger: logger}
}

// HandleReload loads and validates the config at configPath, then hands
// it to the swap function. A config that fails to load or validate is
// rejected here, before the swap can touch the running graph.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload aborted: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	h.logger.Info("configuration valid, swapping module graph", "path", configPath)
	return h.swap(ctx, cfg)
}
