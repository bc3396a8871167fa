package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/specialistvlad/mjlaunch/internal/devices"
	"github.com/specialistvlad/mjlaunch/internal/hcl"
	"github.com/specialistvlad/mjlaunch/internal/launch"
	"github.com/specialistvlad/mjlaunch/internal/registry"
	"github.com/specialistvlad/mjlaunch/internal/resolver"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	switch a.config.Command {
	case CommandList:
		return a.list()
	case CommandWorker:
		return a.runWorker(ctx)
	default:
		return a.train(ctx)
	}
}

// train resolves the task and launches it. Every resolution stage completes
// before any worker starts.
func (a *App) train(ctx context.Context) error {
	logger := a.logger.With("task", a.config.TaskID)
	ctx = ctxlog.WithLogger(ctx, logger)

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		defer a.closeHealthCheckServer()
	}

	overrides, err := hcl.Load(ctx, a.config.Overrides)
	if err != nil {
		return stageError(StageConfig, err)
	}

	cfg, err := resolver.New(a.registry).Resolve(ctx, a.config.TaskID, overrides)
	if err != nil {
		var unknown *registry.UnknownTaskError
		if errors.As(err, &unknown) {
			return stageError(StageRegistry, err)
		}
		return stageError(StageConfig, err)
	}

	runner, err := a.registry.LoadRunner(a.config.TaskID)
	if err != nil {
		return stageError(StageRegistry, err)
	}
	if cr, ok := runner.(*trainer.CommandRunner); ok && len(cr.Command) == 0 {
		return stageError(StageConfig, fmt.Errorf("%w: set trainer.command in the settings file or pass --trainer-command", trainer.ErrNoCommand))
	}

	plan, err := devices.Select(ctx, a.deps.Devices, cfg.Devices)
	if err != nil {
		return stageError(StageDevices, err)
	}
	logger.Info("Device plan selected.", "workers", plan.WorkerCount, "devices", plan.Devices)

	directive, err := cfg.ResumeDirective()
	if err != nil {
		return stageError(StageConfig, err)
	}
	expDir := launch.ExperimentDir(a.config.LogRoot, cfg.Agent.ExperimentName)
	ckpts := checkpoint.NewResolver(a.deps.Store)
	ckpts.CacheDir = a.config.CacheDir
	if a.deps.Now != nil {
		ckpts.Now = a.deps.Now
	}
	handle, err := ckpts.Resolve(ctx, directive, expDir)
	if err != nil {
		return stageError(StageCheckpoint, err)
	}

	spawner := a.deps.Spawner
	if spawner == nil && plan.WorkerCount > 1 {
		ps, err := launch.NewProcessSpawner()
		if err != nil {
			return stageError(StageLaunch, err)
		}
		spawner = ps
	}

	orch := &launch.Orchestrator{
		LogRoot:     a.config.LogRoot,
		Spawner:     spawner,
		Tracker:     a.tracker,
		CopyEnv:     a.config.CopyEnv,
		WorkerFlags: a.config.WorkerFlags,
		ExtraEnv: []string{
			LogLevelEnv + "=" + a.config.LogLevel,
			LogFormatEnv + "=json",
		},
		Environ: a.deps.Environ,
		Now:     a.deps.Now,
	}
	status := orch.Launch(ctx, launch.Request{
		TaskID:     a.config.TaskID,
		Config:     cfg,
		Plan:       plan,
		Checkpoint: handle,
		Runner:     runner,
	})
	if !status.OK() {
		return stageError(StageLaunch, status.AsError())
	}
	logger.Info("🏁 Training finished.", "log_dir", status.LogDir, "launch_id", status.LaunchID)
	return nil
}

// runWorker is the entry point of a spawned worker process.
func (a *App) runWorker(ctx context.Context) error {
	spec, cfg, rc, err := launch.LoadWorker(a.config.WorkerSpec, a.config.WorkerContext)
	if err != nil {
		return stageError(StageLaunch, err)
	}
	runner, err := a.registry.LoadRunner(spec.TaskID)
	if err != nil {
		return stageError(StageRegistry, err)
	}
	ctx = ctxlog.With(ctx, "launch_id", spec.LaunchID, "task", spec.TaskID)
	if err := launch.ExecuteWorker(ctx, runner, rc, cfg, spec.Checkpoint); err != nil {
		return &launch.WorkerFailure{Index: rc.Rank, Err: err}
	}
	return nil
}
