// Package tasks holds the tasks shipped with the launcher. Each file builds
// the configuration trees of one robot; Modules returns them for
// registry.Build.
package tasks
