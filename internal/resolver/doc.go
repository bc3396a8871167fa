// Package resolver produces the final configuration of a run from a task
// identifier and an override tree.
//
// Resolution is the last point where configuration can fail. Everything that
// can be checked without starting a worker is checked here: override paths
// and types, the resume source, and the files a task refers to.
package resolver
