package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseAssignment(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want cty.Value
	}{
		{name: "number", in: "agent.seed=7", want: cty.NumberIntVal(7)},
		{name: "negative", in: "agent.clip_actions = -1.5", want: cty.NumberFloatVal(-1.5)},
		{name: "bool", in: "video=true", want: cty.True},
		{name: "quoted", in: `agent.run_name="sweep 1"`, want: cty.StringVal("sweep 1")},
		{name: "bare word", in: "gpu_ids=all", want: cty.StringVal("all")},
		{name: "path", in: "motion_file=/data/walk.npz", want: cty.StringVal("/data/walk.npz")},
		{name: "date is not arithmetic", in: "agent.load_run=2025-01-01_10-00-00", want: cty.StringVal("2025-01-01_10-00-00")},
		{name: "null", in: "gpu_ids=null", want: cty.NullVal(cty.DynamicPseudoType)},
		{name: "tuple", in: "gpu_ids=[0, 1]", want: cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(1)})},
		{name: "value with equals", in: "agent.run_name=a=b", want: cty.StringVal("a=b")},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAssignment(tc.in)
			require.NoError(t, err)

			leaf := got
			for leaf.Type().IsObjectType() {
				attrs := leaf.AsValueMap()
				require.Len(t, attrs, 1)
				for _, v := range attrs {
					leaf = v
				}
			}
			require.True(t, tc.want.RawEquals(leaf), "want %#v, got %#v", tc.want, leaf)
		})
	}
}

func TestParseAssignment_Nesting(t *testing.T) {
	t.Parallel()
	got, err := ParseAssignment("env.sim.nan_guard.enabled=true")
	require.NoError(t, err)
	want := cty.ObjectVal(map[string]cty.Value{
		"env": cty.ObjectVal(map[string]cty.Value{
			"sim": cty.ObjectVal(map[string]cty.Value{
				"nan_guard": cty.ObjectVal(map[string]cty.Value{"enabled": cty.True}),
			}),
		}),
	})
	require.True(t, want.RawEquals(got))
}

func TestParseAssignment_Invalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"agent.seed", "=7", "agent..seed=1"} {
		_, err := ParseAssignment(in)
		var cfgErr *config.ConfigError
		require.ErrorAs(t, err, &cfgErr, in)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "override.hcl", `
video   = true
gpu_ids = [0, 1]

agent {
  seed = 3
  algorithm {
    learning_rate = 3e-4
  }
}

env {
  commands "twist" {
    resampling_time_s = 5
  }
  rewards = { action_rate = -0.1 }
}
`)

	got, err := LoadFile(path)
	require.NoError(t, err)

	attrs := got.AsValueMap()
	require.True(t, attrs["video"].True())
	agent := attrs["agent"].AsValueMap()
	require.True(t, cty.NumberIntVal(3).RawEquals(agent["seed"]))
	lr := agent["algorithm"].GetAttr("learning_rate").AsBigFloat()
	f, _ := lr.Float64()
	require.Equal(t, 3e-4, f)

	twist := attrs["env"].GetAttr("commands").GetAttr("twist")
	require.True(t, cty.NumberIntVal(5).RawEquals(twist.GetAttr("resampling_time_s")))
	require.True(t, attrs["env"].GetAttr("rewards").Type().IsObjectType())
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.hcl"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, "bad.hcl", "agent {\n")
	_, err = LoadFile(bad)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	vars := writeFile(t, "vars.hcl", "seed = var.seed\n")
	_, err = LoadFile(vars)
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_Precedence(t *testing.T) {
	t.Parallel()
	file := writeFile(t, "o.hcl", "agent {\n  seed = 1\n  run_name = \"file\"\n}\n")

	got, err := Load(context.Background(), Sources{
		Files:       []string{file},
		Assignments: []string{"agent.seed=2", "agent.seed=3"},
	})
	require.NoError(t, err)
	agent := got.GetAttr("agent")
	require.True(t, cty.NumberIntVal(3).RawEquals(agent.GetAttr("seed")))
	require.True(t, cty.StringVal("file").RawEquals(agent.GetAttr("run_name")))

	empty, err := Load(context.Background(), Sources{})
	require.NoError(t, err)
	require.Equal(t, cty.NilVal, empty)
}
