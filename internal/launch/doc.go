// Package launch runs a resolved configuration on its device plan.
//
// A launch writes the configuration snapshot and a launch spec into a fresh
// run directory, then either calls the runner in process (one worker) or
// spawns one worker process per device. Worker processes receive their
// identity as an explicit run context and share nothing with each other
// except the run directory. The first worker failure cancels the others and
// fails the launch.
package launch
