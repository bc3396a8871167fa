package registry

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/trainer"
)

// EnvFactory returns a fresh environment configuration on every call.
type EnvFactory func() *config.EnvConfig

// AgentFactory returns a fresh agent configuration on every call.
type AgentFactory func() *config.AgentConfig

// RunnerFactory returns a runner implementation for one run.
type RunnerFactory func() trainer.Runner

// TaskRecord binds a task identifier to its configuration factories and the
// runner kind that trains it. PlayEnvCfg is optional.
type TaskRecord struct {
	ID         string
	EnvCfg     EnvFactory
	PlayEnvCfg EnvFactory
	AgentCfg   AgentFactory
	RunnerKind string
}

// Module contributes task records to a registry.
type Module interface {
	Tasks() []TaskRecord
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func() []TaskRecord

// Tasks calls f.
func (f ModuleFunc) Tasks() []TaskRecord { return f() }

// Registry holds the registered tasks and runner kinds of one process.
type Registry struct {
	tasks   map[string]*TaskRecord
	order   []string
	runners map[string]RunnerFactory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		tasks:   make(map[string]*TaskRecord),
		runners: make(map[string]RunnerFactory),
	}
}

// Build creates a registry from runner kinds and task modules and validates
// it.
func Build(runners map[string]RunnerFactory, modules ...Module) (*Registry, error) {
	r := New()
	for kind, f := range runners {
		r.RegisterRunner(kind, f)
	}
	for _, m := range modules {
		for _, rec := range m.Tasks() {
			if err := r.Register(rec); err != nil {
				return nil, err
			}
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterRunner registers the factory for a runner kind. Registering a kind
// twice is a programming error.
func (r *Registry) RegisterRunner(kind string, f RunnerFactory) {
	if _, exists := r.runners[kind]; exists {
		panic(fmt.Sprintf("runner kind '%s' already registered", kind))
	}
	if f == nil {
		panic(fmt.Sprintf("runner kind '%s' has a nil factory", kind))
	}
	slog.Debug("Registering runner kind.", "kind", kind)
	r.runners[kind] = f
}

// Register adds a task. It fails with DuplicateTaskError when the identifier
// is taken.
func (r *Registry) Register(rec TaskRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("task record has an empty identifier")
	}
	if rec.EnvCfg == nil || rec.AgentCfg == nil {
		return fmt.Errorf("task '%s' is missing a configuration factory", rec.ID)
	}
	if _, exists := r.tasks[rec.ID]; exists {
		return &DuplicateTaskError{ID: rec.ID}
	}
	slog.Debug("Registering task.", "task", rec.ID, "runner", rec.RunnerKind)
	r.tasks[rec.ID] = &rec
	r.order = append(r.order, rec.ID)
	return nil
}

// ListTasks returns the task identifiers in registration order.
func (r *Registry) ListTasks() []string {
	return append([]string(nil), r.order...)
}

// Record returns a copy of a task record.
func (r *Registry) Record(id string) (TaskRecord, error) {
	rec, ok := r.tasks[id]
	if !ok {
		return TaskRecord{}, &UnknownTaskError{ID: id}
	}
	return *rec, nil
}

// LoadEnvCfg returns a fresh environment configuration for a task.
func (r *Registry) LoadEnvCfg(id string) (*config.EnvConfig, error) {
	rec, ok := r.tasks[id]
	if !ok {
		return nil, &UnknownTaskError{ID: id}
	}
	return rec.EnvCfg(), nil
}

// LoadPlayEnvCfg returns a fresh evaluation environment configuration for a
// task, falling back to the training one.
func (r *Registry) LoadPlayEnvCfg(id string) (*config.EnvConfig, error) {
	rec, ok := r.tasks[id]
	if !ok {
		return nil, &UnknownTaskError{ID: id}
	}
	if rec.PlayEnvCfg != nil {
		return rec.PlayEnvCfg(), nil
	}
	return rec.EnvCfg(), nil
}

// LoadAgentCfg returns a fresh agent configuration for a task.
func (r *Registry) LoadAgentCfg(id string) (*config.AgentConfig, error) {
	rec, ok := r.tasks[id]
	if !ok {
		return nil, &UnknownTaskError{ID: id}
	}
	return rec.AgentCfg(), nil
}

// LoadRunner returns a new runner for a task.
func (r *Registry) LoadRunner(id string) (trainer.Runner, error) {
	rec, ok := r.tasks[id]
	if !ok {
		return nil, &UnknownTaskError{ID: id}
	}
	f, ok := r.runners[rec.RunnerKind]
	if !ok {
		return nil, fmt.Errorf("task '%s': runner kind '%s' is not registered", id, rec.RunnerKind)
	}
	return f(), nil
}
