package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/mjlaunch/internal/app"
	"github.com/specialistvlad/mjlaunch/internal/hcl"
	"github.com/specialistvlad/mjlaunch/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParse_Train(t *testing.T) {
	t.Setenv(app.LogLevelEnv, "")
	t.Setenv(app.LogFormatEnv, "")

	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{
		"Mjlab-Velocity-Flat-Unitree-Go2",
		"--seed", "7",
		"--set", "env.scene.num_envs=64",
		"--run-name", "probe",
		"--gpu-ids", "0,1",
		"--log-root", "/tmp/runs",
	}, out)
	require.NoError(t, err)
	require.False(t, exit)

	require.Equal(t, app.CommandTrain, cfg.Command)
	require.Equal(t, "Mjlab-Velocity-Flat-Unitree-Go2", cfg.TaskID)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat, "a non-terminal output defaults to json")
	require.Equal(t, "/tmp/runs", cfg.LogRoot)

	want := []string{
		"env.scene.num_envs=64",
		"agent.seed=7",
		`agent.run_name="probe"`,
		`gpu_ids="0,1"`,
	}
	if diff := cmp.Diff(want, cfg.Overrides.Assignments); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_StringFlagsStayLiteral(t *testing.T) {
	testCases := []string{
		"sweep_${lr}",
		"grid_%{ if x }",
		`quote"and\backslash`,
		"plain",
	}
	for _, name := range testCases {
		name := name
		t.Run(name, func(t *testing.T) {
			cfg, _, err := Parse([]string{"Task", "--run-name", name, "--load-run", name}, &bytes.Buffer{})
			require.NoError(t, err)

			tree, err := hcl.Load(context.Background(), cfg.Overrides)
			require.NoError(t, err)
			agent := tree.GetAttr("agent")
			require.True(t, cty.StringVal(name).RawEquals(agent.GetAttr("run_name")), "run_name = %#v", agent.GetAttr("run_name"))
			require.True(t, cty.StringVal(name).RawEquals(agent.GetAttr("load_run")), "load_run = %#v", agent.GetAttr("load_run"))
		})
	}
}

func TestParse_SetUsageExplainsExpressions(t *testing.T) {
	out := &bytes.Buffer{}
	_, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	require.True(t, exit)
	require.Contains(t, out.String(), "0012 is the number 12")
}

func TestParse_TaskAfterFlags(t *testing.T) {
	cfg, exit, err := Parse([]string{"--log-level", "debug", "--log-format", "text", "Some-Task"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, "Some-Task", cfg.TaskID)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestParse_RemoteRunPathImpliesResume(t *testing.T) {
	cfg, _, err := Parse([]string{"Task", "--remote-run-path", "team/project/abc123"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, []string{`remote_run_path="team/project/abc123"`, "agent.resume=true"}, cfg.Overrides.Assignments)

	cfg, _, err = Parse([]string{"Task", "--remote-run-path", "team/project/abc123", "--resume=false"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, []string{`remote_run_path="team/project/abc123"`, "agent.resume=false"}, cfg.Overrides.Assignments)
}

func TestParse_List(t *testing.T) {
	cfg, exit, err := Parse([]string{"list"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, app.CommandList, cfg.Command)
	require.Equal(t, app.DefaultLogRoot, cfg.LogRoot)
}

func TestParse_Worker(t *testing.T) {
	cfg, _, err := Parse([]string{"__worker", "--launch-spec", "/r/params/launch.json", "--run-context", `{"rank":1}`}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, app.CommandWorker, cfg.Command)
	require.Equal(t, "/r/params/launch.json", cfg.WorkerSpec)
	require.Equal(t, `{"rank":1}`, cfg.WorkerContext)

	_, _, err = Parse([]string{"__worker"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, ExitUsage, exitErr.Code)
}

func TestParse_Settings(t *testing.T) {
	t.Setenv("TEST_REMOTE_TOKEN", "secret")

	dir := testutil.WriteFiles(t, map[string]string{"mjlaunch.yaml": `
log_root: /data/logs
remote:
  base_url: https://store.example
  token_env: TEST_REMOTE_TOKEN
trainer:
  command: [python, -m, train]
`})
	path := filepath.Join(dir, "mjlaunch.yaml")

	cfg, _, err := Parse([]string{"Task", "--config", path}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "/data/logs", cfg.LogRoot)
	require.Equal(t, "https://store.example", cfg.Remote.BaseURL)
	require.Equal(t, "secret", cfg.Remote.Token)
	require.Equal(t, []string{"python", "-m", "train"}, cfg.TrainerCommand)
	require.Equal(t, []string{"--config", path}, cfg.WorkerFlags)

	cfg, _, err = Parse([]string{"Task", "--config", path, "--log-root", "/other", "--trainer-command", "./train.sh --fast"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "/other", cfg.LogRoot)
	require.Equal(t, []string{"./train.sh", "--fast"}, cfg.TrainerCommand)
	require.Equal(t, []string{"--config", path, "--trainer-command", "./train.sh --fast"}, cfg.WorkerFlags)
}

func TestParse_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		require.True(t, exit)
		require.Nil(t, cfg)
		require.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"Task", "--bogus"}},
		{"bad log level", []string{"Task", "--log-level", "loud"}},
		{"bad log format", []string{"Task", "--log-format", "xml"}},
		{"extra argument", []string{"Task", "Other"}},
		{"missing settings file", []string{"Task", "--config", "/nonexistent/mjlaunch.yaml"}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			require.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, ExitUsage, exitErr.Code)
		})
	}
}
