package checkpoint

import "fmt"

// Source records where a checkpoint came from.
type Source string

const (
	SourceNone             Source = "none"
	SourceLocal            Source = "local"
	SourceRemoteCached     Source = "remote-cached"
	SourceRemoteDownloaded Source = "remote-downloaded"
)

// Handle is a resolved checkpoint. It is read-only once returned.
type Handle struct {
	Path           string `json:"path"`
	Source         Source `json:"source"`
	RunIdentifier  string `json:"run_identifier"`
	CheckpointName string `json:"checkpoint_name"`
}

// NotFoundError reports a missing run directory or checkpoint file.
type NotFoundError struct {
	Run        string
	Checkpoint string
	Reason     string
}

func (e *NotFoundError) Error() string {
	if e.Checkpoint == "" {
		return fmt.Sprintf("checkpoint not found: run %q: %s", e.Run, e.Reason)
	}
	return fmt.Sprintf("checkpoint not found: run %q, checkpoint %q: %s", e.Run, e.Checkpoint, e.Reason)
}

// FetchError reports a failure to obtain a checkpoint from the remote store.
type FetchError struct {
	RunReference string
	Attempts     int
	Err          error
}

func (e *FetchError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("fetch checkpoint for %q failed after %d attempt(s): %v", e.RunReference, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch checkpoint for %q failed: %v", e.RunReference, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
