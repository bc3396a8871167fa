package app

import (
	"github.com/specialistvlad/mjlaunch/internal/registry"
	"github.com/specialistvlad/mjlaunch/internal/tasks"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// runnerKinds is the definitive list of runner kinds compiled into the
// mjlaunch binary.
var runnerKinds = []string{
	trainer.KindOnPolicy,
	trainer.KindVelocityOnPolicy,
	trainer.KindTrackingOnPolicy,
}

// coreModules returns the task modules compiled into the binary.
func coreModules() []registry.Module {
	return tasks.Modules()
}

// commandRunners binds every runner kind to the external training program.
func commandRunners(command []string) map[string]registry.RunnerFactory {
	out := make(map[string]registry.RunnerFactory, len(runnerKinds))
	for _, kind := range runnerKinds {
		kind := kind
		out[kind] = func() trainer.Runner { return trainer.NewCommandRunner(kind, command) }
	}
	return out
}
