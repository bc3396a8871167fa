package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
)

// Runner kinds shipped with the launcher.
const (
	KindOnPolicy         = "on-policy"
	KindVelocityOnPolicy = "velocity-on-policy"
	KindTrackingOnPolicy = "tracking-on-policy"
)

// Runner is a training entry point. Train blocks until training completes.
// ckpt is nil for a fresh start.
type Runner interface {
	Train(ctx context.Context, rc RunContext, cfg *config.RunConfig, ckpt *checkpoint.Handle) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, rc RunContext, cfg *config.RunConfig, ckpt *checkpoint.Handle) error

// Train calls f.
func (f RunnerFunc) Train(ctx context.Context, rc RunContext, cfg *config.RunConfig, ckpt *checkpoint.Handle) error {
	return f(ctx, rc, cfg, ckpt)
}

// ErrNoCommand is returned when a CommandRunner has nothing to execute.
var ErrNoCommand = errors.New("no trainer command configured")

// CommandRunner runs an external training program. The program receives the
// snapshot paths and the worker identity as flags and the rank variables in
// its environment.
type CommandRunner struct {
	Kind    string
	Command []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewCommandRunner returns a runner for kind that executes command.
func NewCommandRunner(kind string, command []string) *CommandRunner {
	return &CommandRunner{
		Kind:    kind,
		Command: append([]string(nil), command...),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Args returns the arguments passed to the training program.
func (r *CommandRunner) Args(rc RunContext, cfg *config.RunConfig, ckpt *checkpoint.Handle) []string {
	var args []string
	if len(r.Command) > 1 {
		args = append(args, r.Command[1:]...)
	}
	args = append(args,
		"--runner", r.Kind,
		"--env-config", ParamsPath(rc.LogDir, config.EnvSnapshotFile),
		"--agent-config", ParamsPath(rc.LogDir, config.AgentSnapshotFile),
		"--log-dir", rc.LogDir,
		"--device", rc.Device,
		"--seed", strconv.Itoa(rc.Seed),
		"--max-iterations", strconv.Itoa(cfg.Agent.MaxIterations),
	)
	if ckpt != nil {
		args = append(args, "--resume", ckpt.Path)
	}
	if cfg.IsTracking() {
		args = append(args, "--motion-file", cfg.Env.Commands[config.CommandMotion].MotionFile)
	}
	if cfg.Video && rc.IsMain() {
		args = append(args,
			"--video-dir", VideoDir(rc.LogDir),
			"--video-length", strconv.Itoa(cfg.VideoLength),
			"--video-interval", strconv.Itoa(cfg.VideoInterval),
		)
	}
	return args
}

// Train runs the training program and waits for it to exit.
func (r *CommandRunner) Train(ctx context.Context, rc RunContext, cfg *config.RunConfig, ckpt *checkpoint.Handle) error {
	if len(r.Command) == 0 || r.Command[0] == "" {
		return ErrNoCommand
	}
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, r.Command[0], r.Args(rc, cfg, ckpt)...)
	cmd.Env = append(os.Environ(), rc.Environ()...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	logger.Info("Starting training program.", "runner", r.Kind, "command", r.Command[0], "device", rc.Device, "seed", rc.Seed)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("training program %s: %w", r.Command[0], err)
	}
	logger.Info("Training program finished.", "runner", r.Kind)
	return nil
}
