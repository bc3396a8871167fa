// Package trainer defines the contract between the launcher and a training
// loop: the per-worker RunContext, the Runner entry point, and the built-in
// CommandRunner that hands a resolved run to an external training program.
package trainer
