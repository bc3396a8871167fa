package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/app"
	"github.com/specialistvlad/mjlaunch/internal/hcl"
	"github.com/specialistvlad/mjlaunch/internal/launch"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	ExitFailed = 1
	ExitUsage  = 2
)

const usageText = `
mjlaunch - resolve and launch reinforcement learning training runs.

Usage:
  mjlaunch <TASK> [options]
  mjlaunch list [options]

Arguments:
  TASK
    Identifier of a registered task. Run 'mjlaunch list' to see them.

Options:
`

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	command, task := app.CommandTrain, ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "list":
			command = app.CommandList
		case launch.WorkerCommand:
			command = app.CommandWorker
		default:
			task = args[0]
		}
		args = args[1:]
	}

	flagSet := flag.NewFlagSet("mjlaunch", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	defaultLevel := envOr(app.LogLevelEnv, "info")
	defaultFormat := os.Getenv(app.LogFormatEnv)
	if defaultFormat == "" {
		f, _ := output.(*os.File)
		defaultFormat = app.DefaultLogFormat(f)
	}

	logLevelFlag := flagSet.String("log-level", defaultLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", defaultFormat, "Log output format. Options: 'text' or 'json'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	settingsFlag := flagSet.String("config", "", "Path to a launcher settings file (YAML).")
	logRootFlag := flagSet.String("log-root", "", "Root directory of experiment logs.")
	cacheDirFlag := flagSet.String("cache-dir", "", "Directory for cached remote checkpoints.")
	remoteURLFlag := flagSet.String("remote-url", "", "Base URL of the remote checkpoint store.")
	trainerFlag := flagSet.String("trainer-command", "", "Training program and its leading arguments, split on spaces.")
	var sets, overrideFiles stringList
	flagSet.Var(&sets, "set", "Override a configuration field: path=value. Repeatable.\n"+
		"The value is an HCL expression, so 0012 is the number 12; quote strings as in path=\"0012\".")
	flagSet.Var(&overrideFiles, "overrides", "HCL file of configuration overrides. Repeatable.")
	var run runFlags
	run.register(flagSet)
	specFlag := flagSet.String("launch-spec", "", "")
	contextFlag := flagSet.String("run-context", "", "")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	rest := flagSet.Args()
	if command == app.CommandTrain && task == "" {
		if len(rest) == 0 {
			slog.Debug("No task provided, printing usage and exiting.")
			flagSet.Usage()
			return nil, true, nil
		}
		task, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unexpected argument %q", rest[0])}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	settings := app.DefaultSettings()
	var workerFlags []string
	if *settingsFlag != "" {
		s, err := app.LoadSettings(*settingsFlag)
		if err != nil {
			return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
		}
		settings = s
		if abs, err := filepath.Abs(*settingsFlag); err == nil {
			workerFlags = append(workerFlags, "--config", abs)
		}
	}
	slog.Debug("CLI parameter validation complete.")

	trainerCommand := settings.Trainer.Command
	if *trainerFlag != "" {
		trainerCommand = strings.Fields(*trainerFlag)
		workerFlags = append(workerFlags, "--trainer-command", *trainerFlag)
	}

	config, err := app.NewConfig(app.Config{
		Command:         command,
		TaskID:          task,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		LogRoot:         firstNonEmpty(*logRootFlag, settings.LogRoot),
		CacheDir:        firstNonEmpty(*cacheDirFlag, settings.CacheDir),
		Remote: app.RemoteConfig{
			BaseURL:     firstNonEmpty(*remoteURLFlag, settings.Remote.BaseURL),
			Token:       os.Getenv(settings.Remote.TokenEnv),
			MaxAttempts: settings.Remote.MaxAttempts,
		},
		TrainerCommand: trainerCommand,
		CopyEnv:        settings.CopyEnv,
		Overrides: hcl.Sources{
			Files:       overrideFiles,
			Assignments: append(append([]string{}, sets...), run.assignments(flagSet)...),
		},
		WorkerFlags:   workerFlags,
		WorkerSpec:    *specFlag,
		WorkerContext: *contextFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command, "task", config.TaskID)
	return config, false, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
