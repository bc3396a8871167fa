package app

import "fmt"

// Stages of the launch pipeline, in order.
const (
	StageRegistry   = "registry"
	StageConfig     = "config"
	StageDevices    = "devices"
	StageCheckpoint = "checkpoint"
	StageLaunch     = "launch"
)

// StageError names the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
