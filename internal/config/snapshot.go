package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Snapshot file names written under a run's params directory.
const (
	ParamsDir         = "params"
	EnvSnapshotFile   = "env.yaml"
	AgentSnapshotFile = "agent.yaml"
	RunSnapshotFile   = "run.yaml"
)

// SnapshotFiles renders the resolved configuration as YAML documents keyed by
// file name.
func SnapshotFiles(c *RunConfig) (map[string][]byte, error) {
	env, err := MarshalYAML(c.Env)
	if err != nil {
		return nil, fmt.Errorf("marshal env config: %w", err)
	}
	agent, err := MarshalYAML(c.Agent)
	if err != nil {
		return nil, fmt.Errorf("marshal agent config: %w", err)
	}
	val, err := ToValue(*c)
	if err != nil {
		return nil, err
	}
	tree, _ := plain(val).(map[string]any)
	tree[DeviceRequestKey] = c.Devices.String()
	run, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}
	return map[string][]byte{
		EnvSnapshotFile:   env,
		AgentSnapshotFile: agent,
		RunSnapshotFile:   run,
	}, nil
}

// MarshalYAML renders a tagged configuration struct as YAML.
func MarshalYAML(v any) ([]byte, error) {
	val, err := ToValue(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(plain(val))
}

// plain converts a cty value into the maps, slices and scalars yaml.v3 knows
// how to encode.
func plain(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		f := v.AsBigFloat()
		if f.IsInt() {
			n, _ := f.Int64()
			return n
		}
		out, _ := f.Float64()
		return out
	case ty.IsObjectType() || ty.IsMapType():
		out := map[string]any{}
		for it := v.ElementIterator(); it.Next(); {
			k, el := it.Element()
			out[k.AsString()] = plain(el)
		}
		return out
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := []any{}
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			out = append(out, plain(el))
		}
		return out
	}
	return nil
}
