// Package hcl reads configuration overrides written in HCL native syntax and
// turns them into partial cty override trees. Two sources are supported:
// override files, where attributes and nested blocks mirror the RunConfig
// tree, and single path=value assignments given on the command line.
package hcl
