package config

import "strings"

// LatestCheckpoint selects the highest numbered checkpoint of a run. As a run
// name it selects the most recent run directory.
const LatestCheckpoint = "latest"

// ResumeKind says where a resumed run loads its checkpoint from.
type ResumeKind int

const (
	ResumeNone ResumeKind = iota
	ResumeLocal
	ResumeRemote
)

func (k ResumeKind) String() string {
	switch k {
	case ResumeLocal:
		return "local"
	case ResumeRemote:
		return "remote"
	default:
		return "none"
	}
}

// ResumeDirective is the user's intent to load a prior checkpoint.
type ResumeDirective struct {
	Kind ResumeKind
	// RunName names a run directory under the experiment log root (local).
	RunName string
	// RunReference addresses a run in the remote store (remote).
	RunReference string
	// Checkpoint is "latest", a checkpoint number or a file name.
	Checkpoint string
}

// ResumeDirective derives the resume directive from the agent options. A
// remote run path takes precedence over a local run name. Requesting resume
// without either is a ConfigError.
func (c *RunConfig) ResumeDirective() (ResumeDirective, error) {
	if !c.Agent.Resume {
		return ResumeDirective{Kind: ResumeNone}, nil
	}
	selector := strings.TrimSpace(c.Agent.LoadCheckpoint)
	if selector == "" {
		selector = LatestCheckpoint
	}
	if ref := strings.Trim(strings.TrimSpace(c.RemoteRunPath), "/"); ref != "" {
		return ResumeDirective{Kind: ResumeRemote, RunReference: ref, Checkpoint: selector}, nil
	}
	if run := strings.TrimSpace(c.Agent.LoadRun); run != "" {
		return ResumeDirective{Kind: ResumeLocal, RunName: run, Checkpoint: selector}, nil
	}
	return ResumeDirective{}, &ConfigError{
		Path: "agent.resume",
		Msg:  "resume requested but neither agent.load_run nor remote_run_path is set",
	}
}
