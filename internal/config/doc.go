// Package config defines the run configuration model for training launches:
// the environment and agent configuration trees produced by task factories,
// the RunConfig that wraps them with launch options, and the typed override
// merge that turns a partial override tree into a final RunConfig.
//
// Configuration trees are plain Go structs tagged for go-cty. All merging
// happens on their cty.Value representation, which gives a closed set of node
// kinds (object, map, leaf) and keeps every override type-checked against the
// base tree.
package config
