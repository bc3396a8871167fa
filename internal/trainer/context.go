package trainer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/config"
)

// CPUDevice is the device name of a worker without an accelerator.
const CPUDevice = "cpu"

// RunContext is the identity of one worker within a run. It is built by the
// coordinator and handed to the worker; it is never shared between workers.
type RunContext struct {
	Rank      int    `json:"rank"`
	LocalRank int    `json:"local_rank"`
	WorldSize int    `json:"world_size"`
	Device    string `json:"device"`
	// PhysicalDevice is the accelerator index bound to this worker, or -1.
	PhysicalDevice int `json:"physical_device"`
	// VisibleDevices is the device plan rendered for CUDA_VISIBLE_DEVICES.
	VisibleDevices string `json:"visible_devices,omitempty"`
	Seed           int    `json:"seed"`
	LogDir         string `json:"log_dir"`
}

// NewRunContext builds the context of worker i. devices is the ordered device
// plan; when it is empty the worker runs on the CPU. Seeds are derived as
// baseSeed+i.
func NewRunContext(i, worldSize int, devices []int, baseSeed int, logDir string) RunContext {
	rc := RunContext{
		Rank:           i,
		LocalRank:      i,
		WorldSize:      worldSize,
		Device:         CPUDevice,
		PhysicalDevice: -1,
		Seed:           baseSeed + i,
		LogDir:         logDir,
	}
	if i < len(devices) {
		rc.Device = fmt.Sprintf("cuda:%d", i)
		rc.PhysicalDevice = devices[i]
		ids := make([]string, len(devices))
		for j, d := range devices {
			ids[j] = strconv.Itoa(d)
		}
		rc.VisibleDevices = strings.Join(ids, ",")
	}
	return rc
}

// IsMain reports whether this worker owns run-wide side effects such as
// video recording.
func (rc RunContext) IsMain() bool {
	return rc.Rank == 0
}

// UsesAccelerator reports whether the worker is bound to a device.
func (rc RunContext) UsesAccelerator() bool {
	return rc.PhysicalDevice >= 0
}

// Apply injects the worker's seed and device into cfg.
func (rc RunContext) Apply(cfg *config.RunConfig) {
	cfg.Agent.Seed = rc.Seed
	cfg.Env.Seed = rc.Seed
	cfg.Agent.Device = rc.Device
}

// Environ returns the rank and device variables a training process expects.
// CUDA_VISIBLE_DEVICES is always set and is empty for a CPU worker.
func (rc RunContext) Environ() []string {
	env := []string{
		"RANK=" + strconv.Itoa(rc.Rank),
		"LOCAL_RANK=" + strconv.Itoa(rc.LocalRank),
		"WORLD_SIZE=" + strconv.Itoa(rc.WorldSize),
		"CUDA_VISIBLE_DEVICES=" + rc.VisibleDevices,
		"MUJOCO_GL=egl",
	}
	if rc.UsesAccelerator() {
		env = append(env, "MUJOCO_EGL_DEVICE_ID="+strconv.Itoa(rc.LocalRank))
	}
	return env
}

// Encode serializes the context for handing it to a worker process.
func (rc RunContext) Encode() (string, error) {
	data, err := json.Marshal(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeRunContext is the inverse of Encode.
func DecodeRunContext(s string) (RunContext, error) {
	var rc RunContext
	if err := json.Unmarshal([]byte(s), &rc); err != nil {
		return RunContext{}, fmt.Errorf("decode run context: %w", err)
	}
	if rc.Rank < 0 || rc.LocalRank < 0 || rc.WorldSize < 1 {
		return RunContext{}, fmt.Errorf("decode run context: invalid ranks %d/%d of %d", rc.Rank, rc.LocalRank, rc.WorldSize)
	}
	return rc, nil
}

// VideoDir is where the main worker records training videos.
func VideoDir(logDir string) string {
	return filepath.Join(logDir, "videos", "train")
}

// ParamsPath returns the path of a snapshot file in a run's log directory.
func ParamsPath(logDir, name string) string {
	return filepath.Join(logDir, config.ParamsDir, name)
}
