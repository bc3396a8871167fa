package devices

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
)

// Plan is the device assignment of a run. An empty Devices list means CPU
// execution with a single worker.
type Plan struct {
	Devices     []int
	WorkerCount int
}

// IsCPU reports whether the plan uses no accelerator.
func (p Plan) IsCPU() bool { return len(p.Devices) == 0 }

// VisibleDevicesEnv renders the plan for CUDA_VISIBLE_DEVICES.
func (p Plan) VisibleDevicesEnv() string {
	parts := make([]string, len(p.Devices))
	for i, d := range p.Devices {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// DeviceNotFoundError reports a requested device index that is not visible.
type DeviceNotFoundError struct {
	Index   int
	Visible []int
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device %d is not available (visible: %v)", e.Index, e.Visible)
}

// Select resolves a request against the devices the provider reports. The
// result depends only on the request and the visible set.
func Select(ctx context.Context, p Provider, req config.DeviceRequest) (Plan, error) {
	if req.IsCPU() {
		return Plan{WorkerCount: 1}, nil
	}
	visible, err := p.VisibleDevices(ctx)
	if err != nil {
		return Plan{}, err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Queried visible devices.", "visible", visible, "request", req.String())

	if req.All {
		if len(visible) == 0 {
			logger.Warn("No accelerators visible, training on CPU.")
			return Plan{WorkerCount: 1}, nil
		}
		return Plan{Devices: append([]int(nil), visible...), WorkerCount: len(visible)}, nil
	}

	present := make(map[int]bool, len(visible))
	for _, v := range visible {
		present[v] = true
	}
	seen := make(map[int]bool, len(req.IDs))
	out := make([]int, 0, len(req.IDs))
	for _, id := range req.IDs {
		if seen[id] {
			return Plan{}, &config.ConfigError{Path: config.DeviceRequestKey, Msg: fmt.Sprintf("device %d is requested more than once", id)}
		}
		seen[id] = true
		if !present[id] {
			return Plan{}, &DeviceNotFoundError{Index: id, Visible: visible}
		}
		out = append(out, id)
	}
	return Plan{Devices: out, WorkerCount: len(out)}, nil
}
