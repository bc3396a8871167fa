package launch

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// ExecuteWorker runs one worker's training session. cfg is not modified;
// the worker trains on a copy with its seed and device injected.
func ExecuteWorker(ctx context.Context, runner trainer.Runner, rc trainer.RunContext, cfg *config.RunConfig, ckpt *checkpoint.Handle) error {
	logger := ctxlog.FromContext(ctx).With("rank", rc.Rank, "local_rank", rc.LocalRank, "device", rc.Device)
	ctx = ctxlog.WithLogger(ctx, logger)

	own, err := cfg.Clone()
	if err != nil {
		return err
	}
	rc.Apply(own)

	if rc.IsMain() && own.Video {
		if err := os.MkdirAll(trainer.VideoDir(rc.LogDir), 0o755); err != nil {
			return fmt.Errorf("create video directory: %w", err)
		}
	}
	if ckpt != nil {
		logger.Info("Resuming from checkpoint.", "path", ckpt.Path, "source", ckpt.Source)
	}

	logger.Info("Worker training started.", "seed", rc.Seed, "world_size", rc.WorldSize)
	if err := runner.Train(ctx, rc, own, ckpt); err != nil {
		logger.Error("Worker training failed.", "error", err)
		return err
	}
	logger.Info("Worker training finished.")
	return nil
}

// LoadWorker reads the launch spec a coordinator wrote and decodes the
// worker's run context.
func LoadWorker(specPath, encodedContext string) (*Spec, *config.RunConfig, trainer.RunContext, error) {
	spec, err := ReadSpec(specPath)
	if err != nil {
		return nil, nil, trainer.RunContext{}, err
	}
	cfg, err := spec.RunConfig()
	if err != nil {
		return nil, nil, trainer.RunContext{}, err
	}
	rc, err := trainer.DecodeRunContext(encodedContext)
	if err != nil {
		return nil, nil, trainer.RunContext{}, err
	}
	if rc.LogDir != spec.LogDir {
		return nil, nil, trainer.RunContext{}, fmt.Errorf("run context log dir %s does not match launch spec %s", rc.LogDir, spec.LogDir)
	}
	return spec, cfg, rc, nil
}
