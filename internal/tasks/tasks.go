package tasks

import (
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/registry"
)

// Modules returns every built-in task module.
func Modules() []registry.Module {
	return []registry.Module{
		registry.ModuleFunc(go2Tasks),
		registry.ModuleFunc(h12Tasks),
		registry.ModuleFunc(g1Tasks),
	}
}

// Terrains.
const (
	TerrainRough = "rough"
	TerrainFlat  = "flat"
)

// ppoAgent returns the PPO defaults shared by every task.
func ppoAgent(experiment string, maxIterations int) *config.AgentConfig {
	return &config.AgentConfig{
		Seed:           42,
		Device:         "cuda:0",
		NumStepsPerEnv: 24,
		MaxIterations:  maxIterations,
		SaveInterval:   50,
		ExperimentName: experiment,
		Logger:         "wandb",
		WandbProject:   "mjlab",
		WandbTags:      []string{},
		LoadCheckpoint: config.LatestCheckpoint,
		ClipActions:    0,
		Policy: config.PolicyConfig{
			InitNoiseStd:      1.0,
			ActorHiddenDims:   []int{512, 256, 128},
			CriticHiddenDims:  []int{512, 256, 128},
			Activation:        "elu",
			ActorObsNormalize: true,
		},
		Algorithm: config.AlgorithmConfig{
			ValueLossCoef:       1.0,
			UseClippedValueLoss: true,
			ClipParam:           0.2,
			EntropyCoef:         0.01,
			NumLearningEpochs:   5,
			NumMiniBatches:      4,
			LearningRate:        1e-3,
			Schedule:            "adaptive",
			Gamma:               0.99,
			Lam:                 0.95,
			DesiredKL:           0.01,
			MaxGradNorm:         1.0,
		},
	}
}

// velocityEnv builds a velocity tracking environment for robot on terrain.
func velocityEnv(robot, terrain string, linX, linY, angZ float64) *config.EnvConfig {
	env := &config.EnvConfig{
		Seed:           42,
		NumEnvs:        4096,
		EpisodeLengthS: 20,
		Decimation:     4,
		Scene:          config.SceneConfig{Robot: robot, Terrain: terrain, EnvSpacing: 2.5},
		Sim: config.SimConfig{
			Timestep:   0.005,
			Iterations: 10,
			NaNGuard:   config.NaNGuardConfig{BufferSize: 100, OutputDir: "/tmp/mjlab/nan_dumps"},
		},
		Commands: map[string]config.CommandConfig{
			"twist": {
				Kind:            config.CommandVelocity,
				ResamplingTimeS: 10,
				LinVelX:         []float64{-linX, linX},
				LinVelY:         []float64{-linY, linY},
				AngVelZ:         []float64{-angZ, angZ},
			},
		},
		Rewards: map[string]float64{
			"track_lin_vel_exp": 1.0,
			"track_ang_vel_exp": 0.5,
			"lin_vel_z_l2":      -2.0,
			"ang_vel_xy_l2":     -0.05,
			"action_rate_l2":    -0.01,
			"dof_pos_limits":    -1.0,
		},
		Terminations: []string{"time_out", "fell_over"},
	}
	if terrain == TerrainFlat {
		env.Sim.Iterations = 5
	}
	return env
}

// playEnv turns a training environment into an evaluation one.
func playEnv(env *config.EnvConfig) *config.EnvConfig {
	env.NumEnvs = 32
	env.EpisodeLengthS = 1e9
	env.Scene.EnvSpacing = 4
	return env
}
