package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/wsfile"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	registry   *registry.Registry
	config     *Config
	file       *wsfile.File
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. Startup failures (an unreadable workspace file, a
// broken component registration) panic; the entrypoint recovers them.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.ValidateRegistry(ctx); err != nil {
		// This is a programmer error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	a := &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
	if cfg.Discover {
		return a
	}

	file, err := wsfile.Load(ctx, cfg.WorkspacePath)
	if err != nil {
		panic(fmt.Errorf("failed to load workspace: %w", err))
	}
	a.file = file
	logger.Debug("Workspace file loaded.", "nodes", len(file.Nodes))
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
