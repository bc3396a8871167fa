package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/specialistvlad/mjlaunch/internal/devices"
	"github.com/specialistvlad/mjlaunch/internal/launch"
	"github.com/specialistvlad/mjlaunch/internal/registry"
)

// Deps are the collaborators of an App. Zero fields get production defaults.
type Deps struct {
	Modules []registry.Module
	Runners map[string]registry.RunnerFactory
	Devices devices.Provider
	Store   checkpoint.Store
	Spawner launch.Spawner
	Environ func() []string
	Now     func() time.Time
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	deps     Deps
	tracker  *launch.Tracker

	httpServer *http.Server
	ctx        context.Context
}

// NewApp is the constructor for the main application. It builds the task
// registry; a registry that fails validation is reported as a registry stage
// error.
func NewApp(outW io.Writer, cfg *Config, deps Deps) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if deps.Modules == nil {
		deps.Modules = coreModules()
	}
	if deps.Runners == nil {
		deps.Runners = commandRunners(cfg.TrainerCommand)
	}
	if deps.Devices == nil {
		deps.Devices = devices.SMIProvider{}
	}
	if deps.Store == nil && cfg.Remote.BaseURL != "" {
		store := checkpoint.NewHTTPStore(cfg.Remote.BaseURL, cfg.Remote.Token)
		if cfg.Remote.MaxAttempts > 0 {
			store.MaxAttempts = cfg.Remote.MaxAttempts
		}
		deps.Store = store
	}

	reg, err := registry.Build(deps.Runners, deps.Modules...)
	if err != nil {
		return nil, stageError(StageRegistry, err)
	}
	logger.Debug("Registry built.", "tasks", len(reg.ListTasks()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		deps:     deps,
		tracker:  launch.NewTracker(),
		ctx:      ctxlog.WithLogger(context.Background(), logger),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Status returns the progress of the current or last launch.
func (a *App) Status() launch.Status {
	return a.tracker.Snapshot()
}
