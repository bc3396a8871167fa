package tasks

import (
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/registry"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

const h12Robot = "unitree_h1_2"

func h12Env(terrain string) *config.EnvConfig {
	env := velocityEnv(h12Robot, terrain, 1.0, 0.3, 0.8)
	env.EpisodeLengthS = 25
	env.Rewards["upright"] = 1.0
	env.Rewards["pose"] = -0.1
	return env
}

func h12Agent() *config.AgentConfig {
	agent := ppoAgent("h1_2_velocity", 30000)
	agent.Algorithm.EntropyCoef = 0.005
	return agent
}

func h12Tasks() []registry.TaskRecord {
	var out []registry.TaskRecord
	for _, terrain := range []string{TerrainRough, TerrainFlat} {
		terrain := terrain
		out = append(out, registry.TaskRecord{
			ID:         velocityTaskID(terrain, "Unitree-H1_2"),
			EnvCfg:     func() *config.EnvConfig { return h12Env(terrain) },
			PlayEnvCfg: func() *config.EnvConfig { return playEnv(h12Env(terrain)) },
			AgentCfg:   h12Agent,
			RunnerKind: trainer.KindVelocityOnPolicy,
		})
	}
	return out
}
