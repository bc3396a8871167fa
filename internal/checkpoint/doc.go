// Package checkpoint resolves a resume directive to a checkpoint file on the
// local filesystem.
//
// Local directives search a run directory under the experiment log root.
// Remote directives go through a cache under the same log root; a cache entry
// is trusted only when its manifest and artifact digest agree, and entries are
// written with rename-into-place so concurrent launches never see partial
// files.
package checkpoint
