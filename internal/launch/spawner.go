package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
)

// Worker describes one worker process.
type Worker struct {
	Index   int
	Args    []string
	Env     []string
	LogPath string
}

// Spawner runs a worker process to completion. Run returns nil only when the
// worker exited successfully. When ctx is cancelled the worker is stopped.
type Spawner interface {
	Run(ctx context.Context, w Worker) error
}

// ProcessSpawner re-executes Executable with the worker's arguments.
type ProcessSpawner struct {
	Executable string
	// Grace is how long a cancelled worker gets between SIGTERM and SIGKILL.
	Grace time.Duration
}

// NewProcessSpawner returns a spawner for the running binary.
func NewProcessSpawner() (*ProcessSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate launcher executable: %w", err)
	}
	return &ProcessSpawner{Executable: exe, Grace: 10 * time.Second}, nil
}

// Run starts the worker, sends its output to w.LogPath and waits for it.
func (s *ProcessSpawner) Run(ctx context.Context, w Worker) error {
	logger := ctxlog.FromContext(ctx).With("worker", w.Index)

	if err := os.MkdirAll(filepath.Dir(w.LogPath), 0o755); err != nil {
		return fmt.Errorf("create worker log directory: %w", err)
	}
	logFile, err := os.OpenFile(w.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open worker log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(s.Executable, w.Args...)
	cmd.Env = w.Env
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	configureWorkerProcess(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker %d: %w", w.Index, err)
	}
	logger.Debug("Worker process started.", "pid", cmd.Process.Pid, "log", w.LogPath)

	exited := make(chan struct{})
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(exited)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return fmt.Errorf("%w (see %s)", err, w.LogPath)
		}
		return nil
	case <-ctx.Done():
		logger.Warn("Stopping worker process.", "pid", cmd.Process.Pid)
		terminateWorkerProcess(cmd, s.Grace, exited)
		<-exited
		return ctx.Err()
	}
}
