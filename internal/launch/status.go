package launch

import "fmt"

// State is a launch state.
type State string

const (
	StateInit          State = "init"
	StateSingleProcess State = "single-process"
	StateMultiProcess  State = "multi-process"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// WorkerFailure reports a worker that did not finish successfully.
type WorkerFailure struct {
	Index int
	Err   error
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("worker %d failed: %v", e.Index, e.Err)
}

func (e *WorkerFailure) Unwrap() error { return e.Err }

// ExitStatus is the terminal result of a launch. WorkerIndex is -1 unless a
// worker failed.
type ExitStatus struct {
	State       State
	LaunchID    string
	LogDir      string
	WorkerIndex int
	Err         error
}

// OK reports whether the launch completed.
func (s ExitStatus) OK() bool { return s.State == StateDone }

// Summary is a one-line description for the user.
func (s ExitStatus) Summary() string {
	switch {
	case s.OK():
		return fmt.Sprintf("launch %s done, logs in %s", s.LaunchID, s.LogDir)
	case s.WorkerIndex >= 0:
		return fmt.Sprintf("launch %s failed: worker %d: %v", s.LaunchID, s.WorkerIndex, workerCause(s.Err))
	default:
		return fmt.Sprintf("launch %s failed: %v", s.LaunchID, s.Err)
	}
}

// AsError returns nil for a completed launch and a *LaunchError otherwise.
func (s ExitStatus) AsError() error {
	if s.OK() {
		return nil
	}
	return &LaunchError{Status: s}
}

// LaunchError carries a failed ExitStatus. Its message is the status summary.
type LaunchError struct {
	Status ExitStatus
}

func (e *LaunchError) Error() string { return e.Status.Summary() }

func (e *LaunchError) Unwrap() error { return e.Status.Err }

func workerCause(err error) error {
	if wf, ok := err.(*WorkerFailure); ok {
		return wf.Err
	}
	return err
}
