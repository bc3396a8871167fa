package registry

import "fmt"

// UnknownTaskError is returned when a task identifier is not registered.
type UnknownTaskError struct {
	ID string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task '%s'", e.ID)
}

// DuplicateTaskError is returned when a task identifier is registered twice.
type DuplicateTaskError struct {
	ID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task '%s' is already registered", e.ID)
}
