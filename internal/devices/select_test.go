package devices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/mjlaunch/internal/config"
)

func TestSelect(t *testing.T) {
	t.Parallel()
	visible := StaticProvider{3, 1, 0, 2}

	tests := []struct {
		name string
		req  config.DeviceRequest
		want Plan
	}{
		{"all", config.DeviceRequest{All: true}, Plan{Devices: []int{0, 1, 2, 3}, WorkerCount: 4}},
		{"cpu", config.DeviceRequest{}, Plan{WorkerCount: 1}},
		{"empty list", config.DeviceRequest{IDs: []int{}}, Plan{WorkerCount: 1}},
		{"explicit order kept", config.DeviceRequest{IDs: []int{2, 0}}, Plan{Devices: []int{2, 0}, WorkerCount: 2}},
		{"single", config.DeviceRequest{IDs: []int{1}}, Plan{Devices: []int{1}, WorkerCount: 1}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Select(context.Background(), visible, tc.req)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)

			again, err := Select(context.Background(), visible, tc.req)
			require.NoError(t, err)
			require.Equal(t, got, again)
		})
	}
}

func TestSelect_MissingDevice(t *testing.T) {
	t.Parallel()
	_, err := Select(context.Background(), StaticProvider{0, 1, 2, 3}, config.DeviceRequest{IDs: []int{5}})
	var nf *DeviceNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, 5, nf.Index)
}

func TestSelect_DuplicateDevice(t *testing.T) {
	t.Parallel()
	_, err := Select(context.Background(), StaticProvider{0, 1}, config.DeviceRequest{IDs: []int{1, 1}})
	var ce *config.ConfigError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, config.DeviceRequestKey, ce.Path)
}

func TestSelect_AllWithoutAccelerators(t *testing.T) {
	t.Parallel()
	got, err := Select(context.Background(), StaticProvider{}, config.DeviceRequest{All: true})
	require.NoError(t, err)
	require.True(t, got.IsCPU())
	require.Equal(t, 1, got.WorkerCount)
}

func TestParseIndices(t *testing.T) {
	t.Parallel()
	got, err := parseIndices([]byte("1\n0\n\n3\n"))
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 3}, got)

	_, err = parseIndices([]byte("GPU-0\n"))
	require.Error(t, err)
}

func TestPlan_VisibleDevicesEnv(t *testing.T) {
	t.Parallel()
	require.Equal(t, "2,0", Plan{Devices: []int{2, 0}, WorkerCount: 2}.VisibleDevicesEnv())
	require.Equal(t, "", Plan{WorkerCount: 1}.VisibleDevicesEnv())
}
