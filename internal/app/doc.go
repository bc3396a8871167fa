// Package app contains the core application logic. It builds the task
// registry, runs the resolution pipeline (registry, config, devices,
// checkpoint) and hands the result to the launch orchestrator. It is
// decoupled from any specific entrypoint like a CLI.
package app
