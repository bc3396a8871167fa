//go:build windows

package launch

import (
	"os/exec"
	"time"
)

func configureWorkerProcess(cmd *exec.Cmd) {}

func terminateWorkerProcess(cmd *exec.Cmd, _ time.Duration, _ <-chan struct{}) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
