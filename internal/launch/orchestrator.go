package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/specialistvlad/mjlaunch/internal/devices"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// WorkerCommand is the hidden subcommand a spawned worker runs.
const WorkerCommand = "__worker"

// Request is a fully resolved launch.
type Request struct {
	TaskID     string
	Config     *config.RunConfig
	Plan       devices.Plan
	Checkpoint *checkpoint.Handle
	// Runner trains in process when the plan has a single worker.
	Runner trainer.Runner
}

// Orchestrator launches runs under LogRoot.
type Orchestrator struct {
	LogRoot string
	Spawner Spawner
	Tracker *Tracker
	// CopyEnv adds patterns to DefaultEnvPatterns and BackendEnvPattern.
	CopyEnv []string
	// WorkerFlags are passed to every worker before its launch arguments.
	WorkerFlags []string
	// ExtraEnv is appended to every worker's environment.
	ExtraEnv []string
	Environ  func() []string
	Now      func() time.Time
}

// Launch runs req to completion. Failures are reported in the returned
// status rather than as an error.
func (o *Orchestrator) Launch(ctx context.Context, req Request) ExitStatus {
	status := ExitStatus{State: StateInit, LaunchID: uuid.NewString(), WorkerIndex: -1}
	logger := ctxlog.FromContext(ctx).With("launch_id", status.LaunchID, "task", req.TaskID)
	ctx = ctxlog.WithLogger(ctx, logger)

	fail := func(err error) ExitStatus {
		status.State = StateFailed
		status.Err = err
		var wf *WorkerFailure
		if errors.As(err, &wf) {
			status.WorkerIndex = wf.Index
		}
		o.Tracker.setState(StateFailed)
		logger.Error("Launch failed.", "error", err, "worker", status.WorkerIndex)
		return status
	}

	cfg, err := req.Config.Clone()
	if err != nil {
		return fail(fmt.Errorf("freeze run config: %w", err))
	}
	n := max(req.Plan.WorkerCount, 1)

	now := o.now()
	runDir := filepath.Join(ExperimentDir(o.LogRoot, cfg.Agent.ExperimentName), RunDirName(now, cfg.Agent.RunName))
	status.LogDir = runDir
	environ := o.environ()

	contexts := make([]trainer.RunContext, n)
	workers := make([]WorkerStatus, n)
	for i := range contexts {
		contexts[i] = trainer.NewRunContext(i, n, req.Plan.Devices, cfg.Agent.Seed, runDir)
		workers[i] = WorkerStatus{
			Index:  i,
			Device: contexts[i].Device,
			Seed:   contexts[i].Seed,
			State:  WorkerPending,
		}
		if n > 1 {
			workers[i].LogPath = WorkerLogPath(runDir, cfg.LauncherLogDir, lookupEnv(environ, LauncherLogDirEnv), i)
		}
	}
	o.Tracker.begin(status.LaunchID, req.TaskID, runDir, now, workers)

	if err := writeSnapshot(runDir, cfg); err != nil {
		return fail(err)
	}
	cfgJSON, err := config.EncodeJSON(cfg)
	if err != nil {
		return fail(fmt.Errorf("encode run config: %w", err))
	}
	specPath := trainer.ParamsPath(runDir, SpecFile)
	spec := &Spec{
		LaunchID:      status.LaunchID,
		TaskID:        req.TaskID,
		LogDir:        runDir,
		Devices:       req.Plan.Devices,
		DeviceRequest: cfg.Devices.String(),
		Checkpoint:    req.Checkpoint,
		Config:        cfgJSON,
		CreatedAt:     now.UTC(),
	}
	if err := WriteSpec(specPath, spec); err != nil {
		return fail(fmt.Errorf("write launch spec: %w", err))
	}
	logger.Info("Run directory prepared.", "log_dir", runDir, "workers", n, "devices", req.Plan.VisibleDevicesEnv())

	if n == 1 {
		status.State = StateSingleProcess
		o.Tracker.setState(StateSingleProcess)
		if req.Runner == nil {
			return fail(errors.New("no runner for single-process launch"))
		}
		o.Tracker.setWorker(0, WorkerRunning, nil)
		if err := ExecuteWorker(ctx, req.Runner, contexts[0], cfg, req.Checkpoint); err != nil {
			o.Tracker.setWorker(0, WorkerFailed, err)
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			return fail(&WorkerFailure{Index: 0, Err: err})
		}
		o.Tracker.setWorker(0, WorkerDone, nil)
	} else {
		status.State = StateMultiProcess
		o.Tracker.setState(StateMultiProcess)
		if err := o.runWorkers(ctx, specPath, contexts, workers, environ); err != nil {
			return fail(err)
		}
	}

	status.State = StateDone
	o.Tracker.setState(StateDone)
	logger.Info("Launch finished.", "log_dir", runDir)
	return status
}

// runWorkers spawns one process per context and waits for all of them. The
// first failure cancels the rest.
func (o *Orchestrator) runWorkers(ctx context.Context, specPath string, contexts []trainer.RunContext, workers []WorkerStatus, environ []string) error {
	if o.Spawner == nil {
		return errors.New("no spawner configured for multi-process launch")
	}
	patterns := append(append(append([]string{}, DefaultEnvPatterns...), BackendEnvPattern), o.CopyEnv...)
	base := FilterEnv(environ, patterns)

	g, gctx := errgroup.WithContext(ctx)
	for i, rc := range contexts {
		i, rc := i, rc
		encoded, err := rc.Encode()
		if err != nil {
			return fmt.Errorf("encode run context %d: %w", i, err)
		}
		args := append([]string{WorkerCommand}, o.WorkerFlags...)
		args = append(args, "--launch-spec", specPath, "--run-context", encoded)
		env := append(append([]string{}, base...), o.ExtraEnv...)
		w := Worker{
			Index:   i,
			Args:    args,
			Env:     append(env, rc.Environ()...),
			LogPath: workers[i].LogPath,
		}
		g.Go(func() error {
			o.Tracker.setWorker(i, WorkerRunning, nil)
			ctxlog.FromContext(gctx).Info("Starting worker.", "worker", i, "device", rc.Device, "seed", rc.Seed, "log", w.LogPath)
			if err := o.Spawner.Run(gctx, w); err != nil {
				o.Tracker.setWorker(i, WorkerFailed, err)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &WorkerFailure{Index: i, Err: err}
			}
			o.Tracker.setWorker(i, WorkerDone, nil)
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) environ() []string {
	if o.Environ == nil {
		return os.Environ()
	}
	return o.Environ()
}
