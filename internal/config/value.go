package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// runConfigType is the cty type of a RunConfig tree.
var runConfigType = mustImpliedType(RunConfig{})

func mustImpliedType(v any) cty.Type {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		panic(fmt.Sprintf("config: cannot imply cty type of %T: %v", v, err))
	}
	return ty
}

// ToValue converts a tagged configuration struct into its cty tree.
func ToValue(v any) (cty.Value, error) {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty type of %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

// Clone returns a deep copy of c. The copy shares no maps or slices with c.
func (c *RunConfig) Clone() (*RunConfig, error) {
	val, err := ToValue(*c)
	if err != nil {
		return nil, err
	}
	return fromValue(val, c.Devices)
}

// ApplyOverrides merges a partial override tree onto a copy of base. The base
// is left untouched. A null or nil override tree yields a plain copy.
func ApplyOverrides(base *RunConfig, overrides cty.Value) (*RunConfig, error) {
	baseVal, err := ToValue(*base)
	if err != nil {
		return nil, err
	}
	merged := baseVal
	if overrides != cty.NilVal && !overrides.IsNull() {
		merged, err = Merge(baseVal, overrides)
		if err != nil {
			return nil, err
		}
	}
	return fromValue(merged, base.Devices)
}

func fromValue(val cty.Value, devices DeviceRequest) (*RunConfig, error) {
	out := &RunConfig{}
	if err := gocty.FromCtyValue(val, out); err != nil {
		return nil, decodeError(err)
	}
	out.Devices = devices.Clone()
	return out, nil
}

// EncodeJSON serializes the cty tree of c. Devices are not included.
func EncodeJSON(c *RunConfig) ([]byte, error) {
	val, err := gocty.ToCtyValue(*c, runConfigType)
	if err != nil {
		return nil, err
	}
	return ctyjson.Marshal(val, runConfigType)
}

// DecodeJSON is the inverse of EncodeJSON.
func DecodeJSON(data []byte, devices DeviceRequest) (*RunConfig, error) {
	val, err := ctyjson.Unmarshal(data, runConfigType)
	if err != nil {
		return nil, fmt.Errorf("decode run config: %w", err)
	}
	return fromValue(val, devices)
}
