package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Tasks supplies fresh base configurations by task identifier.
type Tasks interface {
	LoadEnvCfg(id string) (*config.EnvConfig, error)
	LoadAgentCfg(id string) (*config.AgentConfig, error)
}

// MissingFileError reports a configured file that does not exist. It
// unwraps to fs.ErrNotExist.
type MissingFileError struct {
	Field string
	Path  string
	Err   error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s: file %s not found", e.Field, e.Path)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// Resolver builds run configurations.
type Resolver struct {
	tasks Tasks
}

// New returns a resolver reading base configurations from tasks.
func New(tasks Tasks) *Resolver {
	return &Resolver{tasks: tasks}
}

// Resolve loads the base configuration of a task and applies overrides.
// overrides may be cty.NilVal. The device request travels in the override
// tree under config.DeviceRequestKey.
func (r *Resolver) Resolve(ctx context.Context, taskID string, overrides cty.Value) (*config.RunConfig, error) {
	logger := ctxlog.FromContext(ctx).With("task", taskID)

	env, err := r.tasks.LoadEnvCfg(taskID)
	if err != nil {
		return nil, err
	}
	agent, err := r.tasks.LoadAgentCfg(taskID)
	if err != nil {
		return nil, err
	}
	base := config.NewRunConfig(env, agent)

	rest, devices := config.Without(overrides, config.DeviceRequestKey)
	if devices != cty.NilVal {
		req, err := config.DeviceRequestFromValue(devices)
		if err != nil {
			return nil, err
		}
		base.Devices = req
	}

	cfg, err := config.ApplyOverrides(base, rest)
	if err != nil {
		return nil, err
	}

	if cfg.EnableNaNGuard {
		cfg.Env.Sim.NaNGuard.Enabled = true
	}

	if err := resolveMotionFile(cfg); err != nil {
		return nil, err
	}
	if !cfg.IsTracking() && cfg.MotionFile != "" {
		logger.Warn("Ignoring motion file for a task without a motion command.", "motion_file", cfg.MotionFile)
	}

	directive, err := cfg.ResumeDirective()
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved run configuration.",
		"experiment", cfg.Agent.ExperimentName,
		"devices", cfg.Devices.String(),
		"resume", directive.Kind.String(),
	)
	return cfg, nil
}

// resolveMotionFile makes the motion file of a tracking task absolute,
// checks that it exists and injects it into the motion command.
func resolveMotionFile(cfg *config.RunConfig) error {
	if !cfg.IsTracking() {
		return nil
	}
	cmd := cfg.Env.Commands[config.CommandMotion]
	field, raw := "motion_file", cfg.MotionFile
	if raw == "" {
		field, raw = "env.commands.motion.motion_file", cmd.MotionFile
	}
	if strings.TrimSpace(raw) == "" {
		return &config.ConfigError{Path: "motion_file", Msg: "tracking tasks require a motion file"}
	}

	path, err := expandPath(raw)
	if err != nil {
		return &config.ConfigError{Path: field, Msg: err.Error()}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingFileError{Field: field, Path: path, Err: err}
		}
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return &config.ConfigError{Path: field, Msg: path + " is a directory"}
	}

	cmd.MotionFile = path
	cfg.Env.Commands[config.CommandMotion] = cmd
	cfg.MotionFile = path
	return nil
}

func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
