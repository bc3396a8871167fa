package config

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// DeviceRequestKey is the override key carrying the device request.
const DeviceRequestKey = "gpu_ids"

// DeviceRequest is the user's accelerator request: every visible device, an
// explicit ordered list of device indices, or neither (CPU only).
type DeviceRequest struct {
	All bool
	IDs []int
}

// IsCPU reports whether the request asks for no accelerator at all.
func (r DeviceRequest) IsCPU() bool {
	return !r.All && len(r.IDs) == 0
}

// String renders the request in the form accepted by ParseDeviceRequest.
func (r DeviceRequest) String() string {
	switch {
	case r.All:
		return "all"
	case r.IsCPU():
		return "none"
	}
	parts := make([]string, len(r.IDs))
	for i, id := range r.IDs {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Clone returns a copy that shares no memory with r.
func (r DeviceRequest) Clone() DeviceRequest {
	out := DeviceRequest{All: r.All}
	if r.IDs != nil {
		out.IDs = append([]int(nil), r.IDs...)
	}
	return out
}

// ParseDeviceRequest parses "all", "none" (or the empty string) or a comma
// separated list of device indices.
func ParseDeviceRequest(s string) (DeviceRequest, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "all":
		return DeviceRequest{All: true}, nil
	case "", "none", "cpu":
		return DeviceRequest{}, nil
	}
	var req DeviceRequest
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id < 0 {
			return DeviceRequest{}, &ConfigError{Path: DeviceRequestKey, Msg: "device index " + strconv.Quote(part) + " is not a non-negative integer"}
		}
		req.IDs = append(req.IDs, id)
	}
	return req, nil
}

// DeviceRequestFromValue reads a device request from an override value: null,
// a string accepted by ParseDeviceRequest, a single index or a sequence of
// indices.
func DeviceRequestFromValue(v cty.Value) (DeviceRequest, error) {
	if v.IsNull() {
		return DeviceRequest{}, nil
	}
	if !v.IsWhollyKnown() {
		return DeviceRequest{}, &ConfigError{Path: DeviceRequestKey, Msg: "value must be known"}
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return ParseDeviceRequest(v.AsString())
	case ty == cty.Number:
		id, err := deviceIndex(v.AsBigFloat())
		if err != nil {
			return DeviceRequest{}, err
		}
		return DeviceRequest{IDs: []int{id}}, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		req := DeviceRequest{IDs: []int{}}
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if el.IsNull() || el.Type() != cty.Number {
				return DeviceRequest{}, &ConfigError{Path: DeviceRequestKey, Msg: "device indices must be numbers"}
			}
			id, err := deviceIndex(el.AsBigFloat())
			if err != nil {
				return DeviceRequest{}, err
			}
			req.IDs = append(req.IDs, id)
		}
		if len(req.IDs) == 0 {
			req.IDs = nil
		}
		return req, nil
	}
	return DeviceRequest{}, &ConfigError{Path: DeviceRequestKey, Msg: "expected \"all\", null or a list of device indices, got " + ty.FriendlyName()}
}

func deviceIndex(f *big.Float) (int, error) {
	if !f.IsInt() || f.Sign() < 0 {
		return 0, &ConfigError{Path: DeviceRequestKey, Msg: "device index " + f.Text('f', -1) + " is not a non-negative integer"}
	}
	n, _ := f.Int64()
	return int(n), nil
}
