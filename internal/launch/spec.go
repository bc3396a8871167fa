package launch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/fsutil"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// SpecFile is the launch spec's name under the params directory.
const SpecFile = "launch.json"

// Spec is everything a worker process needs besides its run context. It is
// written once by the coordinator and only read afterwards.
type Spec struct {
	LaunchID      string             `json:"launch_id"`
	TaskID        string             `json:"task_id"`
	LogDir        string             `json:"log_dir"`
	Devices       []int              `json:"devices"`
	DeviceRequest string             `json:"device_request"`
	Checkpoint    *checkpoint.Handle `json:"checkpoint,omitempty"`
	Config        json.RawMessage    `json:"config"`
	CreatedAt     time.Time          `json:"created_at"`
}

// RunConfig decodes the frozen configuration.
func (s *Spec) RunConfig() (*config.RunConfig, error) {
	req, err := config.ParseDeviceRequest(s.DeviceRequest)
	if err != nil {
		return nil, err
	}
	return config.DecodeJSON(s.Config, req)
}

// WriteSpec writes s to path.
func WriteSpec(path string, s *Spec) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode launch spec: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// ReadSpec reads a spec written by WriteSpec.
func ReadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read launch spec: %w", err)
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode launch spec %s: %w", path, err)
	}
	if len(s.Config) == 0 {
		return nil, fmt.Errorf("launch spec %s has no config", path)
	}
	return &s, nil
}

// writeSnapshot writes the resolved configuration into the run directory.
func writeSnapshot(runDir string, cfg *config.RunConfig) error {
	files, err := config.SnapshotFiles(cfg)
	if err != nil {
		return fmt.Errorf("render config snapshot: %w", err)
	}
	dir := filepath.Join(runDir, config.ParamsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create params directory: %w", err)
	}
	for name, data := range files {
		if err := fsutil.WriteFileAtomic(trainer.ParamsPath(runDir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
