package tasks

import (
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/registry"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

const go2Robot = "unitree_go2"

func go2Env(terrain string) *config.EnvConfig {
	env := velocityEnv(go2Robot, terrain, 1.0, 0.5, 1.0)
	env.Rewards["feet_air_time"] = 0.25
	return env
}

func go2Agent() *config.AgentConfig {
	return ppoAgent("go2_velocity", 10000)
}

func go2Tasks() []registry.TaskRecord {
	var out []registry.TaskRecord
	for _, terrain := range []string{TerrainRough, TerrainFlat} {
		terrain := terrain
		out = append(out, registry.TaskRecord{
			ID:         velocityTaskID(terrain, "Unitree-Go2"),
			EnvCfg:     func() *config.EnvConfig { return go2Env(terrain) },
			PlayEnvCfg: func() *config.EnvConfig { return playEnv(go2Env(terrain)) },
			AgentCfg:   go2Agent,
			RunnerKind: trainer.KindVelocityOnPolicy,
		})
	}
	return out
}

func velocityTaskID(terrain, robot string) string {
	t := "Rough"
	if terrain == TerrainFlat {
		t = "Flat"
	}
	return "Mjlab-Velocity-" + t + "-" + robot
}
