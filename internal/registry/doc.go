// Package registry maps task identifiers to the factories that build their
// configuration and to the runner kind that trains them.
//
// A Registry is built once at startup from an explicit list of modules and
// then handed to the resolver and the CLI. Nothing registers itself on
// import. Build checks that every task refers to a runner kind that was
// registered and that every configuration tree can be encoded, so that a
// mismatch between task modules and compiled runners fails at startup rather
// than in the middle of a launch.
package registry
