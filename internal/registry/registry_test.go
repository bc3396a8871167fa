package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/mjlaunch/internal/checkpoint"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

func testEnv() *config.EnvConfig {
	return &config.EnvConfig{
		Seed:     1,
		NumEnvs:  16,
		Commands: map[string]config.CommandConfig{"twist": {Kind: config.CommandVelocity, LinVelX: []float64{-1, 1}}},
		Rewards:  map[string]float64{"alive": 1},
	}
}

func testAgent() *config.AgentConfig {
	return &config.AgentConfig{
		ExperimentName: "demo",
		Policy:         config.PolicyConfig{ActorHiddenDims: []int{64, 64}},
	}
}

var nopRunner = trainer.RunnerFunc(func(context.Context, trainer.RunContext, *config.RunConfig, *checkpoint.Handle) error {
	return nil
})

func testRunners() map[string]RunnerFactory {
	return map[string]RunnerFactory{"test": func() trainer.Runner { return nopRunner }}
}

func task(id string) TaskRecord {
	return TaskRecord{ID: id, EnvCfg: testEnv, AgentCfg: testAgent, RunnerKind: "test"}
}

func TestBuild_ListsInInsertionOrder(t *testing.T) {
	t.Parallel()
	reg, err := Build(testRunners(),
		ModuleFunc(func() []TaskRecord { return []TaskRecord{task("Zeta"), task("Alpha")} }),
		ModuleFunc(func() []TaskRecord { return []TaskRecord{task("Mid")} }),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"Zeta", "Alpha", "Mid"}, reg.ListTasks())
}

func TestBuild_DuplicateTask(t *testing.T) {
	t.Parallel()
	_, err := Build(testRunners(), ModuleFunc(func() []TaskRecord {
		return []TaskRecord{task("A"), task("A")}
	}))
	var dup *DuplicateTaskError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "A", dup.ID)
}

func TestBuild_UnregisteredRunnerKind(t *testing.T) {
	t.Parallel()
	rec := task("A")
	rec.RunnerKind = "missing"
	_, err := Build(testRunners(), ModuleFunc(func() []TaskRecord { return []TaskRecord{rec} }))
	require.ErrorContains(t, err, "runner kind 'missing' is not registered")
}

func TestBuild_NilPlayConfig(t *testing.T) {
	t.Parallel()
	rec := task("A")
	rec.PlayEnvCfg = func() *config.EnvConfig { return nil }
	_, err := Build(testRunners(), ModuleFunc(func() []TaskRecord { return []TaskRecord{rec} }))
	require.ErrorContains(t, err, "play configuration factory returned nil")
}

func TestRegisterRunner_PanicsOnDuplicate(t *testing.T) {
	t.Parallel()
	reg := New()
	reg.RegisterRunner("test", func() trainer.Runner { return nopRunner })
	require.Panics(t, func() {
		reg.RegisterRunner("test", func() trainer.Runner { return nopRunner })
	})
}

func TestLoad_ReturnsFreshInstances(t *testing.T) {
	t.Parallel()
	reg, err := Build(testRunners(), ModuleFunc(func() []TaskRecord { return []TaskRecord{task("A")} }))
	require.NoError(t, err)

	e1, err := reg.LoadEnvCfg("A")
	require.NoError(t, err)
	e2, err := reg.LoadEnvCfg("A")
	require.NoError(t, err)
	require.Equal(t, e1, e2)
	require.NotSame(t, e1, e2)
	e1.Rewards["alive"] = 5
	e1.Commands["twist"].LinVelX[0] = 9
	require.Equal(t, 1.0, e2.Rewards["alive"])
	require.Equal(t, -1.0, e2.Commands["twist"].LinVelX[0])

	a1, err := reg.LoadAgentCfg("A")
	require.NoError(t, err)
	a2, err := reg.LoadAgentCfg("A")
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.NotSame(t, a1, a2)

	play, err := reg.LoadPlayEnvCfg("A")
	require.NoError(t, err)
	require.Equal(t, e2, play)

	runner, err := reg.LoadRunner("A")
	require.NoError(t, err)
	require.NotNil(t, runner)
}

func TestLoad_UnknownTask(t *testing.T) {
	t.Parallel()
	reg := New()

	_, err := reg.LoadEnvCfg("nope")
	var unknown *UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	_, err = reg.LoadPlayEnvCfg("nope")
	require.ErrorAs(t, err, &unknown)
	_, err = reg.LoadAgentCfg("nope")
	require.ErrorAs(t, err, &unknown)
	_, err = reg.LoadRunner("nope")
	require.ErrorAs(t, err, &unknown)
	_, err = reg.Record("nope")
	require.ErrorAs(t, err, &unknown)
}
