// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's internal configuration.
//
//	mjlaunch <task> [options]     resolve and launch a training run
//	mjlaunch list [options]       print the registered tasks
//
// Workers spawned by a multi-process launch re-enter the binary through a
// hidden subcommand.
package cli
