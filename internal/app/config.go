package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/mjlaunch/internal/hcl"
)

// Command selects what Run does.
type Command string

const (
	CommandTrain  Command = "train"
	CommandList   Command = "list"
	CommandWorker Command = "worker"
)

// RemoteConfig configures the remote checkpoint store.
type RemoteConfig struct {
	BaseURL     string
	Token       string
	MaxAttempts int
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command Command
	TaskID  string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	LogRoot  string
	CacheDir string
	Remote   RemoteConfig

	// TrainerCommand is the external training program of the command runner.
	TrainerCommand []string
	CopyEnv        []string
	Overrides      hcl.Sources

	// WorkerFlags are forwarded to spawned workers so they rebuild the same
	// app configuration.
	WorkerFlags []string

	WorkerSpec    string
	WorkerContext string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandTrain:
		if cfg.TaskID == "" {
			return nil, errors.New("a task identifier is required")
		}
	case CommandWorker:
		if cfg.WorkerSpec == "" || cfg.WorkerContext == "" {
			return nil, errors.New("worker requires --launch-spec and --run-context")
		}
	case CommandList:
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.LogRoot == "" {
		return nil, errors.New("log root cannot be empty")
	}
	if cfg.Remote.MaxAttempts < 0 {
		return nil, errors.New("remote max attempts cannot be negative")
	}
	return &cfg, nil
}
