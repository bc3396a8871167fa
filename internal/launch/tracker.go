package launch

import (
	"sync"
	"time"
)

// Worker states reported by the tracker.
const (
	WorkerPending = "pending"
	WorkerRunning = "running"
	WorkerDone    = "done"
	WorkerFailed  = "failed"
)

// WorkerStatus is the observable state of one worker.
type WorkerStatus struct {
	Index   int    `json:"index"`
	Device  string `json:"device"`
	Seed    int    `json:"seed"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	LogPath string `json:"log_path,omitempty"`
}

// Status is a point-in-time view of a launch.
type Status struct {
	LaunchID  string         `json:"launch_id,omitempty"`
	Task      string         `json:"task,omitempty"`
	State     State          `json:"state"`
	LogDir    string         `json:"log_dir,omitempty"`
	StartedAt time.Time      `json:"started_at,omitzero"`
	Workers   []WorkerStatus `json:"workers"`
}

// Tracker records launch progress for status reporting. It is safe for
// concurrent use; a nil Tracker ignores updates.
type Tracker struct {
	mu     sync.Mutex
	status Status
}

// NewTracker returns a tracker in the init state.
func NewTracker() *Tracker {
	return &Tracker{status: Status{State: StateInit, Workers: []WorkerStatus{}}}
}

func (t *Tracker) begin(launchID, task, logDir string, started time.Time, workers []WorkerStatus) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = Status{
		LaunchID:  launchID,
		Task:      task,
		State:     StateInit,
		LogDir:    logDir,
		StartedAt: started,
		Workers:   workers,
	}
}

func (t *Tracker) setState(s State) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = s
}

func (t *Tracker) setWorker(i int, state string, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.status.Workers) {
		return
	}
	t.status.Workers[i].State = state
	if err != nil {
		t.status.Workers[i].Error = err.Error()
	}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.status
	out.Workers = append([]WorkerStatus{}, t.status.Workers...)
	return out
}
