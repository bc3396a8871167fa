package registry

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/config"
)

// Validate performs a parity check between task records and compiled
// runners. Every task must name a registered runner kind and its
// configuration factories must produce trees that encode to the config type
// system, since overrides and snapshots depend on it.
func (r *Registry) Validate() error {
	var errs []string

	for _, id := range r.order {
		rec := r.tasks[id]
		if _, ok := r.runners[rec.RunnerKind]; !ok {
			errs = append(errs, fmt.Sprintf("task '%s': runner kind '%s' is not registered", id, rec.RunnerKind))
		}

		env, agent := rec.EnvCfg(), rec.AgentCfg()
		if env == nil || agent == nil {
			errs = append(errs, fmt.Sprintf("task '%s': configuration factory returned nil", id))
			continue
		}
		if _, err := config.ToValue(*config.NewRunConfig(env, agent)); err != nil {
			errs = append(errs, fmt.Sprintf("task '%s': configuration cannot be encoded: %v", id, err))
		}
		if rec.PlayEnvCfg != nil {
			if play, _ := r.LoadPlayEnvCfg(id); play == nil {
				errs = append(errs, fmt.Sprintf("task '%s': play configuration factory returned nil", id))
			} else if _, err := config.ToValue(*config.NewRunConfig(play, agent)); err != nil {
				errs = append(errs, fmt.Sprintf("task '%s': play configuration cannot be encoded: %v", id, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
