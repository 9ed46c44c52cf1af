// Package app wires the scanner's dependencies together and runs it in one
// of its modes: the long-running service, a single scan, or an offline
// evaluation of one pair.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscanner/internal/config"
)

// App owns the configuration, the logger and the cleanup functions that
// run in reverse order on Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// setup wires the dependencies and the pipeline. The dependencies are
// released by Close.
func (a *App) setup(ctx context.Context) (*Dependencies, *Pipeline, error) {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	p, err := NewPipeline(a.cfg, deps, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return deps, p, nil
}

// Close runs the registered cleanup functions in reverse order.
func (a *App) Close() {
	a.logger.Info("app: shutting down, running cleanup")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
