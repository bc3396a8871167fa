package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/devices"
	"github.com/specialistvlad/mjlaunch/internal/hcl"
	"github.com/specialistvlad/mjlaunch/internal/launch"
	"github.com/specialistvlad/mjlaunch/internal/registry"
	"github.com/specialistvlad/mjlaunch/internal/testutil"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

func testEnv() *config.EnvConfig {
	return &config.EnvConfig{
		Seed:     1,
		NumEnvs:  8,
		Commands: map[string]config.CommandConfig{"twist": {Kind: config.CommandVelocity, LinVelX: []float64{-1, 1}}},
		Rewards:  map[string]float64{"alive": 1},
	}
}

func testAgent() *config.AgentConfig {
	return &config.AgentConfig{Seed: 10, MaxIterations: 3, ExperimentName: "demo", LoadCheckpoint: config.LatestCheckpoint}
}

type recordingSpawner struct {
	mu      sync.Mutex
	workers []launch.Worker
	fail    int
}

func (s *recordingSpawner) Run(ctx context.Context, w launch.Worker) error {
	s.mu.Lock()
	s.workers = append(s.workers, w)
	s.mu.Unlock()
	if w.Index == s.fail {
		return errors.New("worker crashed")
	}
	return nil
}

func (s *recordingSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

type harness struct {
	app     *App
	logs    *testutil.SafeBuffer
	spawner *recordingSpawner
	trained *atomic.Int32
	seeds   chan int
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	if cfg.LogRoot == "" {
		cfg.LogRoot = t.TempDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.Command == "" {
		cfg.Command = CommandTrain
	}
	h := &harness{
		logs:    &testutil.SafeBuffer{},
		spawner: &recordingSpawner{fail: -1},
		trained: &atomic.Int32{},
		seeds:   make(chan int, 8),
	}
	runner := trainer.RunnerFunc(func(_ context.Context, rc trainer.RunContext, c *config.RunConfig, _ *checkpoint.Handle) error {
		h.trained.Add(1)
		h.seeds <- c.Agent.Seed
		return nil
	})
	validated, err := NewConfig(cfg)
	require.NoError(t, err)
	a, err := NewApp(h.logs, validated, Deps{
		Modules: []registry.Module{registry.ModuleFunc(func() []registry.TaskRecord {
			return []registry.TaskRecord{
				{ID: "Demo", EnvCfg: testEnv, AgentCfg: testAgent, RunnerKind: "test"},
				{ID: "Other", EnvCfg: testEnv, PlayEnvCfg: testEnv, AgentCfg: testAgent, RunnerKind: "test"},
			}
		})},
		Runners: map[string]registry.RunnerFactory{"test": func() trainer.Runner { return runner }},
		Devices: devices.StaticProvider{0, 1, 2, 3},
		Spawner: h.spawner,
		Environ: func() []string { return []string{"PATH=/bin"} },
		Now:     func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	h.app = a
	t.Cleanup(func() {
		if os.Getenv("MJLAUNCH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.logs.String())
		}
	})
	return h
}

func TestRun_SingleProcess(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{TaskID: "Demo", Overrides: hcl.Sources{Assignments: []string{"gpu_ids=none"}}})

	require.NoError(t, h.app.Run(context.Background()))
	require.EqualValues(t, 1, h.trained.Load())
	require.Equal(t, 10, <-h.seeds)
	require.Zero(t, h.spawner.count())

	_, err := os.Stat(filepath.Join(h.app.config.LogRoot, "demo", "2025-01-02_03-04-05", "params", "env.yaml"))
	require.NoError(t, err)
	require.Equal(t, launch.StateDone, h.app.Status().State)
}

func TestRun_MultiProcess(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{TaskID: "Demo", Overrides: hcl.Sources{Assignments: []string{"gpu_ids=all"}}})

	require.NoError(t, h.app.Run(context.Background()))
	require.Equal(t, 4, h.spawner.count())
	require.Zero(t, h.trained.Load())
}

func TestRun_WorkerFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{TaskID: "Demo", Overrides: hcl.Sources{Assignments: []string{`gpu_ids="0,1,2"`}}})
	h.spawner.fail = 1

	err := h.app.Run(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageLaunch, se.Stage)
	var wf *launch.WorkerFailure
	require.ErrorAs(t, err, &wf)
	require.Equal(t, 1, wf.Index)
	require.Contains(t, err.Error(), "failed: worker 1: ")
}

func TestRun_ResolutionErrorsNeverSpawn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		task    string
		sets    []string
		stage   string
		wantErr any
	}{
		{"unknown task", "Missing", nil, StageRegistry, new(*registry.UnknownTaskError)},
		{"bad override", "Demo", []string{"agent.no_such_field=1"}, StageConfig, new(*config.ConfigError)},
		{"resume without source", "Demo", []string{"agent.resume=true"}, StageConfig, new(*config.ConfigError)},
		{"missing device", "Demo", []string{"gpu_ids=[5]"}, StageDevices, new(*devices.DeviceNotFoundError)},
		{"missing checkpoint", "Demo", []string{"agent.resume=true", "agent.load_run=nope"}, StageCheckpoint, new(*checkpoint.NotFoundError)},
		{"remote without store", "Demo", []string{"agent.resume=true", "remote_run_path=team/proj/run"}, StageCheckpoint, new(*checkpoint.FetchError)},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, Config{TaskID: tc.task, Overrides: hcl.Sources{Assignments: append([]string{"gpu_ids=all"}, tc.sets...)}})

			err := h.app.Run(context.Background())
			var se *StageError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tc.stage, se.Stage)
			require.ErrorAs(t, err, tc.wantErr)
			require.Zero(t, h.spawner.count())
			require.Zero(t, h.trained.Load())
		})
	}
}

func TestRun_WorkerCommand(t *testing.T) {
	t.Parallel()
	coord := newHarness(t, Config{TaskID: "Demo", Overrides: hcl.Sources{Assignments: []string{"gpu_ids=[0,1]"}}})
	require.NoError(t, coord.app.Run(context.Background()))
	require.Equal(t, 2, coord.spawner.count())

	var w launch.Worker
	for _, cand := range coord.spawner.workers {
		if cand.Index == 1 {
			w = cand
		}
	}
	args := map[string]string{}
	for i := 1; i+1 < len(w.Args); i += 2 {
		args[w.Args[i]] = w.Args[i+1]
	}

	worker := newHarness(t, Config{
		Command:       CommandWorker,
		LogRoot:       coord.app.config.LogRoot,
		WorkerSpec:    args["--launch-spec"],
		WorkerContext: args["--run-context"],
	})
	require.NoError(t, worker.app.Run(context.Background()))
	require.EqualValues(t, 1, worker.trained.Load())
	require.Equal(t, 11, <-worker.seeds)
}

func TestRun_List(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{Command: CommandList, LogLevel: "error"})
	require.NoError(t, h.app.Run(context.Background()))
	out := h.logs.String()
	require.Contains(t, out, "TASK")
	require.Contains(t, out, "Demo")
	require.Contains(t, out, "Other")
	require.Less(t, strings.Index(out, "Demo"), strings.Index(out, "Other"))
}

func TestNewApp_DuplicateTask(t *testing.T) {
	t.Parallel()
	cfg, err := NewConfig(Config{Command: CommandList, LogRoot: t.TempDir()})
	require.NoError(t, err)
	rec := registry.TaskRecord{ID: "Dup", EnvCfg: testEnv, AgentCfg: testAgent, RunnerKind: "test"}
	_, err = NewApp(&testutil.SafeBuffer{}, cfg, Deps{
		Modules: []registry.Module{registry.ModuleFunc(func() []registry.TaskRecord { return []registry.TaskRecord{rec, rec} })},
		Runners: map[string]registry.RunnerFactory{"test": func() trainer.Runner { return nil }},
	})
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageRegistry, se.Stage)
	var dup *registry.DuplicateTaskError
	require.ErrorAs(t, err, &dup)
}

func TestNewApp_DefaultRunnersNeedCommand(t *testing.T) {
	t.Parallel()
	cfg, err := NewConfig(Config{Command: CommandTrain, TaskID: "Mjlab-Velocity-Flat-Unitree-Go2", LogRoot: t.TempDir(), LogLevel: "error"})
	require.NoError(t, err)
	a, err := NewApp(&testutil.SafeBuffer{}, cfg, Deps{Devices: devices.StaticProvider{}})
	require.NoError(t, err)
	require.Len(t, a.Registry().ListTasks(), 5)

	err = a.Run(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageConfig, se.Stage)
	require.ErrorIs(t, err, trainer.ErrNoCommand)
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{TaskID: "Demo", Overrides: hcl.Sources{Assignments: []string{"gpu_ids=[0,1]"}}})
	require.NoError(t, h.app.Run(context.Background()))

	srv := httptest.NewServer(h.app.healthMux())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status launch.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, launch.StateDone, status.State)
	require.Equal(t, "Demo", status.Task)
	require.Len(t, status.Workers, 2)
	require.Equal(t, launch.WorkerDone, status.Workers[1].State)
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	_, err := NewConfig(Config{Command: CommandTrain, LogRoot: "logs"})
	require.Error(t, err)
	_, err = NewConfig(Config{Command: CommandWorker, LogRoot: "logs", WorkerSpec: "x"})
	require.Error(t, err)
	_, err = NewConfig(Config{Command: CommandList})
	require.Error(t, err)
	_, err = NewConfig(Config{Command: "deploy", LogRoot: "logs"})
	require.Error(t, err)
	cfg, err := NewConfig(Config{Command: CommandTrain, TaskID: "T", LogRoot: "logs"})
	require.NoError(t, err)
	require.Equal(t, "T", cfg.TaskID)
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "mjlaunch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_root: /data/logs
remote:
  base_url: https://artifacts.example.com/api
trainer:
  command: [python, -m, mjlab.train]
copy_env: [WANDB_*]
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, "/data/logs", s.LogRoot)
	require.Equal(t, "https://artifacts.example.com/api", s.Remote.BaseURL)
	require.Equal(t, DefaultRemoteTokenEnv, s.Remote.TokenEnv)
	require.Equal(t, 3, s.Remote.MaxAttempts)
	require.Equal(t, []string{"python", "-m", "mjlab.train"}, s.Trainer.Command)
	require.Equal(t, []string{"WANDB_*"}, s.CopyEnv)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log_rot: x\n"), 0o644))
	_, err = LoadSettings(bad)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	s, err = LoadSettings(empty)
	require.NoError(t, err)
	require.Equal(t, DefaultLogRoot, s.LogRoot)
}
