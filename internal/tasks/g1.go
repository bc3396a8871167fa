package tasks

import (
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/registry"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// G1TrackingTaskID is the motion tracking task. It needs a motion file.
const G1TrackingTaskID = "Mjlab-Tracking-Flat-Unitree-G1"

func g1TrackingEnv() *config.EnvConfig {
	return &config.EnvConfig{
		Seed:           42,
		NumEnvs:        4096,
		EpisodeLengthS: 10,
		Decimation:     4,
		Scene:          config.SceneConfig{Robot: "unitree_g1", Terrain: TerrainFlat, EnvSpacing: 2.5},
		Sim: config.SimConfig{
			Timestep:   0.005,
			Iterations: 10,
			NaNGuard:   config.NaNGuardConfig{BufferSize: 100, OutputDir: "/tmp/mjlab/nan_dumps"},
		},
		Commands: map[string]config.CommandConfig{
			config.CommandMotion: {Kind: config.CommandMotion, ResamplingTimeS: 1e9},
		},
		Rewards: map[string]float64{
			"motion_global_root_pos": 0.5,
			"motion_global_root_ori": 0.5,
			"motion_body_pos":        1.0,
			"motion_body_ori":        1.0,
			"motion_body_lin_vel":    1.0,
			"motion_body_ang_vel":    1.0,
			"action_rate_l2":         -0.1,
			"joint_limit":            -10.0,
			"undesired_contacts":     -0.1,
		},
		Terminations: []string{"time_out", "anchor_pos", "anchor_ori", "ee_body_pos"},
	}
}

func g1TrackingAgent() *config.AgentConfig {
	agent := ppoAgent("g1_tracking", 30000)
	agent.SaveInterval = 500
	agent.Algorithm.EntropyCoef = 0.005
	return agent
}

func g1Tasks() []registry.TaskRecord {
	return []registry.TaskRecord{{
		ID:         G1TrackingTaskID,
		EnvCfg:     g1TrackingEnv,
		PlayEnvCfg: func() *config.EnvConfig { return playEnv(g1TrackingEnv()) },
		AgentCfg:   g1TrackingAgent,
		RunnerKind: trainer.KindTrackingOnPolicy,
	}}
}
