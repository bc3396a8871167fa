package devices

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
)

// Provider reports the accelerator indices visible to this host.
type Provider interface {
	VisibleDevices(ctx context.Context) ([]int, error)
}

// StaticProvider reports a fixed device set.
type StaticProvider []int

// VisibleDevices returns the configured indices in ascending order.
func (p StaticProvider) VisibleDevices(context.Context) ([]int, error) {
	out := append([]int(nil), p...)
	sort.Ints(out)
	return out, nil
}

// SMIProvider queries nvidia-smi. A host without the binary has no visible
// devices.
type SMIProvider struct {
	Binary string
}

// VisibleDevices runs the query and parses one index per line.
func (p SMIProvider) VisibleDevices(ctx context.Context) ([]int, error) {
	logger := ctxlog.FromContext(ctx)
	bin := p.Binary
	if bin == "" {
		bin = "nvidia-smi"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		logger.Debug("Device query tool not found, assuming no accelerators.", "binary", bin)
		return nil, nil
	}
	out, err := exec.CommandContext(ctx, path, "--query-gpu=index", "--format=csv,noheader").Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("query visible devices: %w: %s", err, bytes.TrimSpace(ee.Stderr))
		}
		return nil, fmt.Errorf("query visible devices: %w", err)
	}
	return parseIndices(out)
}

func parseIndices(out []byte) ([]int, error) {
	var ids []int
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("unexpected device index %q", line)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, sc.Err()
}
