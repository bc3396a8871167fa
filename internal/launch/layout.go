package launch

import (
	"path/filepath"
	"strconv"
	"time"
)

// TimestampLayout names run directories.
const TimestampLayout = "2006-01-02_15-04-05"

// LauncherLogDirEnv overrides where worker output is written.
const LauncherLogDirEnv = "MJLAUNCH_LAUNCHER_LOG_DIR"

// ExperimentDir is the log root of one experiment. Local runs and the remote
// checkpoint cache live under it.
func ExperimentDir(logRoot, experiment string) string {
	return filepath.Join(logRoot, experiment)
}

// RunDirName returns <timestamp>[_<run name>].
func RunDirName(now time.Time, runName string) string {
	name := now.Format(TimestampLayout)
	if runName != "" {
		name += "_" + runName
	}
	return name
}

// WorkerLogPath returns the file worker i writes its output to. dir is the
// configured launcher log directory and wins over envDir; without either the
// logs go under the run directory.
func WorkerLogPath(runDir, dir, envDir string, i int) string {
	switch {
	case dir != "":
	case envDir != "":
		dir = envDir
	default:
		dir = filepath.Join(runDir, "launcher")
	}
	return filepath.Join(dir, "worker_"+strconv.Itoa(i)+".log")
}
